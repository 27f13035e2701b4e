package lending

import "github.com/shopspring/decimal"

// borrowBounds keeps the intermediate limits of a max-borrow computation so
// callers can tell which one bound the result.
type borrowBounds struct {
	userAllowance      decimal.Decimal
	availableLiquidity decimal.Decimal
	capped             bool
	remainingCap       decimal.Decimal
	isolated           bool
	remainingCeiling   decimal.Decimal
	amount             decimal.Decimal
	margin             bool
}

func (e *Engine) borrowBounds(reserve ReserveSnapshot, user UserPositionSnapshot, mode RateMode) borrowBounds {
	p := e.params
	var b borrowBounds

	availableForUserRef := minDec(floorZero(user.AvailableBorrowsInReferenceCurrency), floorZero(reserve.AvailableLiquidityInReferenceCurrency()))
	b.userAllowance = FromReference(reserve, availableForUserRef)

	liquidity := floorZero(reserve.AvailableLiquidity)
	b.availableLiquidity = liquidity
	if reserve.BorrowCap.IsPositive() {
		b.capped = true
		b.remainingCap = reserve.BorrowCap.Sub(reserve.TotalDebt)
		b.availableLiquidity = minDec(b.availableLiquidity, b.remainingCap)
	}
	b.availableLiquidity = floorZero(b.availableLiquidity)

	amount := minDec(b.userAllowance, b.availableLiquidity)
	if mode == RateModeStable {
		amount = minDec(amount, liquidity.Mul(p.StableBorrowCeiling))
	}

	if isolated := user.IsolatedReserve; user.IsInIsolationMode && isolated != nil && isolated.DebtCeiling.IsPositive() {
		b.isolated = true
		b.remainingCeiling = floorZero(isolated.DebtCeiling.Sub(isolated.IsolationModeTotalDebt))
		amount = minDec(amount, FromReference(reserve, b.remainingCeiling))
	}
	b.amount = floorZero(amount)

	hasPoolDebt := reserve.TotalDebt.IsPositive()
	switch {
	case !b.amount.IsPositive():
	case user.HasDebt() && b.availableLiquidity.GreaterThan(b.userAllowance):
		b.margin = true
	case hasPoolDebt && b.amount.Equal(b.availableLiquidity):
		b.margin = true
	case b.capped && hasPoolDebt && b.amount.GreaterThanOrEqual(b.remainingCap):
		b.margin = true
	case b.isolated && ToReference(reserve, b.amount).GreaterThanOrEqual(b.remainingCeiling.Mul(one.Sub(p.IsolationCeilingProximity))):
		b.margin = true
	}
	if b.margin {
		b.amount = b.amount.Mul(p.BorrowMargin)
	}
	b.amount = roundDown(b.amount, reserve.Decimals)
	return b
}

// MaxBorrow returns the largest amount of reserve the user may borrow in the
// given rate mode. The result never exceeds the pool liquidity left under the
// borrow cap nor the user's cross-asset allowance converted to asset units.
func (e *Engine) MaxBorrow(reserve ReserveSnapshot, user UserPositionSnapshot, mode RateMode) CapacityResult {
	b := e.borrowBounds(reserve, user, mode)
	return CapacityResult{MaxAmount: b.amount, MarginApplied: b.margin}
}

// MaxSupply returns how much of walletBalance can be supplied. The native
// asset keeps nativeBuffer in the wallet for gas.
func (e *Engine) MaxSupply(walletBalance decimal.Decimal, reserve ReserveSnapshot, isNative bool, nativeBuffer decimal.Decimal) CapacityResult {
	if reserve.IsFrozen {
		return CapacityResult{MaxAmount: decimal.Zero}
	}
	amount := floorZero(walletBalance)
	if isNative {
		amount = amount.Sub(nativeBuffer)
	}
	margin := false
	if reserve.SupplyCap.IsPositive() {
		room := floorZero(reserve.SupplyCap.Sub(reserve.TotalLiquidity).Mul(e.params.SupplyCapMargin))
		if room.LessThan(amount) {
			amount = room
			margin = true
		}
	}
	amount = roundDown(amount, reserve.Decimals)
	if !amount.IsPositive() {
		return CapacityResult{MaxAmount: decimal.Zero, MarginApplied: margin}
	}
	return CapacityResult{MaxAmount: amount, MarginApplied: margin}
}

// MaxWithdraw returns how much of the user's supplied balance can leave the
// pool without pushing the health factor below one.
func (e *Engine) MaxWithdraw(reserve ReserveSnapshot, position UserReservePosition, user UserPositionSnapshot) CapacityResult {
	base := minDec(floorZero(position.UnderlyingBalance), floorZero(reserve.Unborrowed()))
	if !position.UsageAsCollateralEnabledOnUser || !reserve.UsageAsCollateralEnabled ||
		!reserve.LiquidationThreshold.IsPositive() || !user.HasDebt() {
		return CapacityResult{MaxAmount: base}
	}

	p := e.params
	limitRef := decimal.Zero
	if excess := user.HealthFactor.Sub(one); excess.IsPositive() {
		threshold := effectiveThreshold(reserve, user).Add(p.WithdrawThresholdBuffer)
		limitRef = safeDiv(excess.Mul(user.TotalBorrowsInReferenceCurrency), threshold).Mul(p.WithdrawMargin)
	}
	limit := FromReference(reserve, limitRef)
	if !limit.LessThan(base) {
		return CapacityResult{MaxAmount: base}
	}
	return CapacityResult{
		MaxAmount:     roundDown(limit, reserve.Decimals),
		MarginApplied: true,
	}
}

// RepayRequest selects the debt and funding source of a repay.
type RepayRequest struct {
	RateMode RateMode
	// WithCollateral repays from the supplied balance instead of the wallet.
	WithCollateral bool
	// Balance is the wallet balance, already net of any gas buffer.
	Balance decimal.Decimal
	// All asks for the full debt plus the accrual buffer.
	All bool
}

// MaxRepay returns the repayable amount for the selected debt bucket.
func (e *Engine) MaxRepay(reserve ReserveSnapshot, position UserReservePosition, req RepayRequest) CapacityResult {
	debt := floorZero(position.Debt(req.RateMode))
	source := req.Balance
	if req.WithCollateral {
		source = position.UnderlyingBalance
	}
	source = floorZero(source)
	if req.All {
		target := debt.Mul(e.params.RepayAllBuffer)
		return CapacityResult{
			MaxAmount:     roundDown(minDec(target, source), reserve.Decimals),
			MarginApplied: true,
		}
	}
	return CapacityResult{MaxAmount: roundDown(minDec(source, debt), reserve.Decimals)}
}

// BorrowGate returns the first rule that forbids the user from borrowing
// reserve, or BlockNone.
func BorrowGate(reserve ReserveSnapshot, user UserPositionSnapshot) BlockReason {
	switch {
	case !reserve.IsActive:
		return BlockReserveInactive
	case reserve.IsFrozen:
		return BlockReserveFrozen
	case !reserve.BorrowingEnabled:
		return BlockBorrowingDisabled
	case user.IsInEmode && reserve.EModeCategoryID != user.UserEmodeCategoryID:
		return BlockEModeCategoryMismatch
	case user.IsInIsolationMode && !reserve.BorrowableInIsolation:
		return BlockNotBorrowableInIsolation
	default:
		return BlockNone
	}
}

// CanBorrow reports whether reserve may be borrowed by the user at all.
func CanBorrow(reserve ReserveSnapshot, user UserPositionSnapshot) bool {
	return BorrowGate(reserve, user) == BlockNone
}

// effectiveThreshold picks the e-mode liquidation threshold when the user's
// category matches the reserve.
func effectiveThreshold(reserve ReserveSnapshot, user UserPositionSnapshot) decimal.Decimal {
	if user.IsInEmode && user.UserEmodeCategoryID != 0 &&
		reserve.EModeCategoryID == user.UserEmodeCategoryID &&
		reserve.EModeLiquidationThreshold.IsPositive() {
		return reserve.EModeLiquidationThreshold
	}
	return reserve.LiquidationThreshold
}
