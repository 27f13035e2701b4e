package lending

import "github.com/shopspring/decimal"

// Usage reports how much of limit the numerator consumes. A zero limit is the
// uncapped sentinel and always reports zero usage. maxedAt is the percentage
// at or above which the cap counts as exhausted.
func Usage(numerator, limit, maxedAt decimal.Decimal) CapUsage {
	if !limit.IsPositive() {
		return CapUsage{}
	}
	percent := safeDiv(numerator, limit).Mul(hundred)
	if percent.IsNegative() {
		percent = decimal.Zero
	}
	return CapUsage{
		PercentUsed: percent.InexactFloat64(),
		IsMaxed:     percent.GreaterThanOrEqual(maxedAt),
	}
}

// SupplyCapUsage applies Usage to (totalLiquidity, supplyCap).
func (p Params) SupplyCapUsage(reserve ReserveSnapshot) CapUsage {
	return Usage(reserve.TotalLiquidity, reserve.SupplyCap, p.CapMaxedPercent)
}

// BorrowCapUsage applies Usage to (totalDebt, borrowCap).
func (p Params) BorrowCapUsage(reserve ReserveSnapshot) CapUsage {
	return Usage(reserve.TotalDebt, reserve.BorrowCap, p.CapMaxedPercent)
}

// DebtCeilingUsage applies Usage to (isolationModeTotalDebt, debtCeiling).
func (p Params) DebtCeilingUsage(reserve ReserveSnapshot) CapUsage {
	return Usage(reserve.IsolationModeTotalDebt, reserve.DebtCeiling, p.CapMaxedPercent)
}

// CapReport evaluates all three caps of reserve.
func (p Params) CapReport(reserve ReserveSnapshot) CapReport {
	return CapReport{
		Asset:       reserve.Asset,
		SupplyCap:   p.SupplyCapUsage(reserve),
		BorrowCap:   p.BorrowCapUsage(reserve),
		DebtCeiling: p.DebtCeilingUsage(reserve),
	}
}

// CapReports evaluates every reserve in the market, in snapshot order.
func (p Params) CapReports(market Market) []CapReport {
	reports := make([]CapReport, 0, len(market.Reserves))
	for _, reserve := range market.Reserves {
		reports = append(reports, p.CapReport(reserve))
	}
	return reports
}
