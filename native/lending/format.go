package lending

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	rayDecimals    = 27
	secondsPerYear = 31_536_000
)

// ParseRaw reads an on-chain integer given in decimal or 0x-prefixed hex.
func ParseRaw(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uint256.NewInt(0), nil
	}
	var (
		raw *uint256.Int
		err error
	)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		// FromHex rejects leading zeros.
		digits := strings.TrimLeft(trimmed[2:], "0")
		if digits == "" {
			digits = "0"
		}
		raw, err = uint256.FromHex("0x" + digits)
	} else {
		raw, err = uint256.FromDecimal(trimmed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, value, err)
	}
	return raw, nil
}

// FormatUnits scales a raw token amount down by decimals.
func FormatUnits(raw *uint256.Int, decimals int32) decimal.Decimal {
	if raw == nil || raw.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw.ToBig(), -decimals)
}

// ToUnits is the inverse of FormatUnits. Fractional digits beyond decimals
// are truncated and negative amounts are rejected.
func ToUnits(amount decimal.Decimal, decimals int32) (*uint256.Int, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	scaled := amount.Shift(decimals).RoundDown(0).BigInt()
	raw, overflow := uint256.FromBig(scaled)
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows 256 bits", ErrInvalidAmount, amount)
	}
	return raw, nil
}

// RayToRate scales a ray-denominated value (1e27 = 1.0) to a plain fraction.
func RayToRate(rate *uint256.Int) decimal.Decimal {
	if rate == nil || rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(rate.ToBig(), -rayDecimals)
}

// RayRateToAPY converts a yearly rate quoted in ray into the APY earned when
// it compounds every second. The expansion stops at the cubic term, matching
// how the protocol itself accrues interest.
func RayRateToAPY(rate *uint256.Int) decimal.Decimal {
	apr := RayToRate(rate)
	if apr.IsZero() {
		return decimal.Zero
	}
	n := decimal.NewFromInt(secondsPerYear)
	perSecond := apr.DivRound(n, rayDecimals)
	nMinusOne := n.Sub(one)
	nMinusTwo := n.Sub(decimal.NewFromInt(2))

	first := n.Mul(perSecond)
	squared := perSecond.Mul(perSecond)
	second := n.Mul(nMinusOne).Mul(squared).DivRound(decimal.NewFromInt(2), rayDecimals)
	third := n.Mul(nMinusOne).Mul(nMinusTwo).Mul(squared).Mul(perSecond).DivRound(decimal.NewFromInt(6), rayDecimals)
	return first.Add(second).Add(third).RoundDown(rayDecimals)
}
