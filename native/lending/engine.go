package lending

import (
	"fmt"

	"github.com/shopspring/decimal"

	nativecommon "lendingrisk/native/common"
)

// Engine sizes user actions against immutable market snapshots. It keeps no
// state between calls; configure it once and share it freely.
type Engine struct {
	params  Params
	formula SolvencyFormula
	pauses  nativecommon.PauseView
}

// NewEngine validates params and binds the solvency formula used by the
// health factor projector.
func NewEngine(params Params, formula SolvencyFormula) (*Engine, error) {
	if formula == nil {
		return nil, errNilFormula
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params, formula: formula}, nil
}

// SetPauses wires the action pause switches. Call before sharing the engine.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Params returns the configured margins.
func (e *Engine) Params() Params { return e.params }

// CheckEpochs verifies that the user snapshot and every supplied reserve
// were produced by the same refresh as the market.
func CheckEpochs(market Market, user UserPositionSnapshot, reserves ...ReserveSnapshot) error {
	if user.Epoch != market.Epoch {
		return fmt.Errorf("%w: market %d, user %s at %d", ErrEpochMismatch, market.Epoch, user.User, user.Epoch)
	}
	if user.IsolatedReserve != nil {
		reserves = append(reserves, *user.IsolatedReserve)
	}
	for _, reserve := range reserves {
		if reserve.Epoch != market.Epoch {
			return fmt.Errorf("%w: market %d, reserve %s at %d", ErrEpochMismatch, market.Epoch, reserve.Asset, reserve.Epoch)
		}
	}
	return nil
}

// Evaluate sizes req for the user. Business outcomes, including a zero
// capacity, come back as a Decision; the error is reserved for inconsistent
// snapshots and malformed requests.
func (e *Engine) Evaluate(market Market, user UserPositionSnapshot, req ActionRequest) (Decision, error) {
	if err := req.Validate(); err != nil {
		return Decision{}, err
	}
	reserve, err := market.Reserve(req.Asset)
	if err != nil {
		return Decision{}, err
	}
	reserves := []ReserveSnapshot{reserve}
	var target ReserveSnapshot
	if req.Kind == ActionSwitchDebt {
		if target, err = market.Reserve(req.TargetAsset); err != nil {
			return Decision{}, err
		}
		reserves = append(reserves, target)
	}
	if err := CheckEpochs(market, user, reserves...); err != nil {
		return Decision{}, err
	}

	if nativecommon.Guard(e.pauses, moduleName, req.Kind.PauseKey()) != nil {
		return Blocked(BlockActionPaused), nil
	}
	if reason := reserveGate(reserve, req.Kind); reason != BlockNone {
		return Blocked(reason), nil
	}

	switch req.Kind {
	case ActionSupply:
		return e.decideSupply(reserve, req), nil
	case ActionWithdraw:
		return e.decideWithdraw(reserve, user, req), nil
	case ActionBorrow:
		return e.decideBorrow(reserve, user, req), nil
	case ActionRepay:
		return e.decideRepay(reserve, user, req), nil
	case ActionToggleCollateral:
		return e.decideToggleCollateral(reserve, user, req), nil
	case ActionSwitchRate:
		return e.decideSwitchRate(reserve, user, req), nil
	case ActionSwitchDebt:
		return e.decideSwitchDebt(reserve, target, user, req), nil
	default:
		return Decision{}, fmt.Errorf("%w: %s", errUnknownAction, req.Kind)
	}
}

// ProjectAsset resolves asset in the market and projects the user's health
// factor after the given reference-currency deltas.
func (e *Engine) ProjectAsset(market Market, user UserPositionSnapshot, asset string, deltaCollateral, deltaDebt decimal.Decimal) (HealthFactorProjection, error) {
	reserve, err := market.Reserve(asset)
	if err != nil {
		return HealthFactorProjection{}, err
	}
	if err := CheckEpochs(market, user, reserve); err != nil {
		return HealthFactorProjection{}, err
	}
	return e.Project(user, reserve, deltaCollateral, deltaDebt), nil
}

func reserveGate(reserve ReserveSnapshot, kind ActionKind) BlockReason {
	switch {
	case !reserve.IsActive:
		return BlockReserveInactive
	case reserve.IsPaused:
		return BlockReservePaused
	case reserve.IsFrozen && (kind == ActionSupply || kind == ActionBorrow):
		return BlockReserveFrozen
	default:
		return BlockNone
	}
}

func (e *Engine) nativeBuffer(req ActionRequest) decimal.Decimal {
	if req.NativeBuffer != nil {
		return *req.NativeBuffer
	}
	return e.params.NativeGasBuffer
}

func (e *Engine) decideSupply(reserve ReserveSnapshot, req ActionRequest) Decision {
	result := e.MaxSupply(req.WalletBalance, reserve, req.IsNativeAsset, e.nativeBuffer(req))
	if result.MaxAmount.IsZero() {
		if reserve.SupplyCap.IsPositive() && e.params.SupplyCapUsage(reserve).IsMaxed {
			return Blocked(BlockCapReached)
		}
		if !req.WalletBalance.IsPositive() {
			return Blocked(BlockNoBalance)
		}
	}
	return Ok(result)
}

func (e *Engine) decideWithdraw(reserve ReserveSnapshot, user UserPositionSnapshot, req ActionRequest) Decision {
	position := user.Position(req.Asset)
	if !position.UnderlyingBalance.IsPositive() {
		return Blocked(BlockNoBalance)
	}
	result := e.MaxWithdraw(reserve, position, user)
	if result.MaxAmount.IsZero() {
		if !reserve.Unborrowed().IsPositive() {
			return Blocked(BlockInsufficientLiquidity)
		}
		return Blocked(BlockExceedsCollateral)
	}
	return Ok(result)
}

func (e *Engine) decideBorrow(reserve ReserveSnapshot, user UserPositionSnapshot, req ActionRequest) Decision {
	if reason := BorrowGate(reserve, user); reason != BlockNone {
		return Blocked(reason)
	}
	if req.RateMode == RateModeStable && !reserve.StableBorrowRateEnabled {
		return Blocked(BlockStableBorrowDisabled)
	}
	b := e.borrowBounds(reserve, user, req.RateMode)
	if b.amount.IsZero() {
		switch {
		case b.capped && !b.remainingCap.IsPositive():
			return Blocked(BlockCapReached)
		case b.isolated && !b.remainingCeiling.IsPositive():
			return Blocked(BlockDebtCeilingReached)
		case !reserve.AvailableLiquidity.IsPositive():
			return Blocked(BlockInsufficientLiquidity)
		case !b.userAllowance.IsPositive():
			return Blocked(BlockExceedsCollateral)
		}
	}
	return Ok(CapacityResult{MaxAmount: b.amount, MarginApplied: b.margin})
}

func (e *Engine) decideRepay(reserve ReserveSnapshot, user UserPositionSnapshot, req ActionRequest) Decision {
	position := user.Position(req.Asset)
	if !position.Debt(req.RateMode).IsPositive() {
		return Blocked(BlockNoDebt)
	}
	balance := req.WalletBalance
	if req.IsNativeAsset && !req.RepayWithCollateral {
		balance = floorZero(balance.Sub(e.nativeBuffer(req)))
	}
	return Ok(e.MaxRepay(reserve, position, RepayRequest{
		RateMode:       req.RateMode,
		WithCollateral: req.RepayWithCollateral,
		Balance:        balance,
		All:            req.RepayAll,
	}))
}

func (e *Engine) decideToggleCollateral(reserve ReserveSnapshot, user UserPositionSnapshot, req ActionRequest) Decision {
	position := user.Position(req.Asset)
	if !position.UnderlyingBalance.IsPositive() {
		return Blocked(BlockNoBalance)
	}
	if !position.UsageAsCollateralEnabledOnUser {
		if !reserve.UsageAsCollateralEnabled {
			return Blocked(BlockCollateralDisabled)
		}
		return Ok(CapacityResult{MaxAmount: position.UnderlyingBalance})
	}
	if user.HasDebt() {
		removed := ToReference(reserve, position.UnderlyingBalance).Neg()
		projection := e.Project(user, reserve, removed, decimal.Zero)
		if !projection.Unchanged && projection.ProjectedHealthFactor.LessThan(one) {
			return Blocked(BlockExceedsCollateral)
		}
	}
	return Ok(CapacityResult{MaxAmount: position.UnderlyingBalance})
}

func (e *Engine) decideSwitchRate(reserve ReserveSnapshot, user UserPositionSnapshot, req ActionRequest) Decision {
	debt := user.Position(req.Asset).Debt(req.RateMode)
	if !debt.IsPositive() {
		return Blocked(BlockNoDebt)
	}
	if req.RateMode == RateModeVariable && !reserve.StableBorrowRateEnabled {
		return Blocked(BlockStableBorrowDisabled)
	}
	return Ok(CapacityResult{MaxAmount: roundDown(debt, reserve.Decimals)})
}

// decideSwitchDebt bounds the movable debt by what the target pool can lend,
// priced back into source units. Collateral is untouched and the debt value
// is preserved, so the user's allowance does not bind.
func (e *Engine) decideSwitchDebt(source, target ReserveSnapshot, user UserPositionSnapshot, req ActionRequest) Decision {
	debt := floorZero(user.Position(req.Asset).Debt(req.RateMode))
	if !debt.IsPositive() {
		return Blocked(BlockNoDebt)
	}
	if reason := reserveGate(target, ActionBorrow); reason != BlockNone {
		return Blocked(reason)
	}
	if reason := BorrowGate(target, user); reason != BlockNone {
		return Blocked(reason)
	}

	room := floorZero(target.AvailableLiquidity)
	capped := target.BorrowCap.IsPositive()
	if capped {
		room = floorZero(minDec(room, target.BorrowCap.Sub(target.TotalDebt)))
	}
	if !room.IsPositive() {
		if capped && !target.BorrowCap.GreaterThan(target.TotalDebt) {
			return Blocked(BlockCapReached)
		}
		return Blocked(BlockInsufficientLiquidity)
	}
	roomInSource := FromReference(source, ToReference(target, room.Mul(e.params.BorrowMargin)))
	if roomInSource.LessThan(debt) {
		return Ok(CapacityResult{MaxAmount: roundDown(roomInSource, source.Decimals), MarginApplied: true})
	}
	return Ok(CapacityResult{MaxAmount: roundDown(debt, source.Decimals)})
}
