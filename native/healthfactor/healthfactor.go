// Package healthfactor implements the protocol solvency formula. Callers that
// size actions must use it rather than re-deriving the ratio so every surface
// reports the same number.
package healthfactor

import "github.com/shopspring/decimal"

// Precision is the number of decimal places a health factor carries, the
// same as the protocol's 18-decimal fixed point value.
const Precision = 18

var (
	// Infinite is returned for positions without debt.
	Infinite = decimal.NewFromInt(-1)
	one      = decimal.NewFromInt(1)
)

// FromBalances returns collateral*liquidationThreshold/debt rounded down to
// Precision. All inputs are in market reference currency; the threshold is a
// fraction such as 0.825. A non-positive debt yields Infinite.
func FromBalances(collateral, debt, liquidationThreshold decimal.Decimal) decimal.Decimal {
	if !debt.IsPositive() {
		return Infinite
	}
	if !collateral.IsPositive() || !liquidationThreshold.IsPositive() {
		return decimal.Zero
	}
	weighted := collateral.Mul(liquidationThreshold)
	return weighted.DivRound(debt, Precision+1).RoundDown(Precision)
}

// IsInfinite reports whether hf is the no-debt sentinel.
func IsInfinite(hf decimal.Decimal) bool { return hf.Equal(Infinite) }

// IsSafe reports whether hf keeps the position out of liquidation.
func IsSafe(hf decimal.Decimal) bool {
	return IsInfinite(hf) || hf.GreaterThanOrEqual(one)
}
