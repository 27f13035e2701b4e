package lending

import "github.com/shopspring/decimal"

// SolvencyFormula computes a health factor from aggregate collateral, debt
// and the weighted liquidation threshold, all in market reference currency.
type SolvencyFormula func(collateral, debt, liquidationThreshold decimal.Decimal) decimal.Decimal

// affectsHealthFactor reports whether reserve counts toward the user's risk
// metric. Assets that isolation mode excludes never contribute.
func affectsHealthFactor(reserve ReserveSnapshot, user UserPositionSnapshot) bool {
	if !reserve.IsIsolated && !user.IsInIsolationMode {
		return true
	}
	if user.IsInIsolationMode && user.IsolatedReserve != nil {
		return equalAsset(user.IsolatedReserve.Asset, reserve.Asset)
	}
	return false
}

// Project returns the health factor the user would have after adding
// deltaCollateral and deltaDebt (both in market reference currency, either
// sign) against reserve.
func (e *Engine) Project(user UserPositionSnapshot, reserve ReserveSnapshot, deltaCollateral, deltaDebt decimal.Decimal) HealthFactorProjection {
	unchanged := HealthFactorProjection{ProjectedHealthFactor: user.HealthFactor, Unchanged: true}
	if !affectsHealthFactor(reserve, user) {
		return unchanged
	}
	if deltaCollateral.IsZero() && deltaDebt.IsZero() {
		return unchanged
	}

	currentCollateral := user.TotalCollateralInReferenceCurrency
	newCollateral := floorZero(currentCollateral.Add(deltaCollateral))
	weighted := currentCollateral.Mul(user.CurrentLiquidationThreshold).
		Add(deltaCollateral.Mul(effectiveThreshold(reserve, user)))
	newThreshold := floorZero(safeDiv(weighted, newCollateral))
	newDebt := floorZero(user.TotalBorrowsInReferenceCurrency.Add(deltaDebt))

	return HealthFactorProjection{
		ProjectedHealthFactor: e.formula(newCollateral, newDebt, newThreshold),
	}
}
