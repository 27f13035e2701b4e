package lending

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// divPrecision keeps quotients well beyond any token precision so the final
// round-down is the only truncation that matters.
const divPrecision = 36

// safeDiv returns a/b, or zero when b is zero. Callers rely on this instead of
// ever producing an unbounded quotient.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, divPrecision)
}

func minDec(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxDec(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// floorZero clamps negative values to zero.
func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// roundDown truncates to the reserve precision. Capacities are never rounded up.
func roundDown(d decimal.Decimal, decimals int32) decimal.Decimal {
	if decimals < 0 {
		decimals = 0
	}
	return d.RoundDown(decimals)
}

// ToReference converts an amount in asset units into market reference
// currency using the reserve price.
func ToReference(reserve ReserveSnapshot, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(reserve.PriceInMarketReferenceCurrency)
}

// FromReference converts a market reference currency amount into asset units.
// A zero price yields zero.
func FromReference(reserve ReserveSnapshot, amountRef decimal.Decimal) decimal.Decimal {
	return safeDiv(amountRef, reserve.PriceInMarketReferenceCurrency)
}
