package lending

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Params holds the safety margins the calculators apply. All multipliers are
// fractions; CapMaxedPercent is a percentage.
type Params struct {
	// BorrowMargin trims max borrow when interest drift could make the
	// exact maximum revert.
	BorrowMargin decimal.Decimal
	// SupplyCapMargin leaves headroom under a supply cap for concurrent supply.
	SupplyCapMargin decimal.Decimal
	// StableBorrowCeiling is the share of liquidity a single stable borrow may take.
	StableBorrowCeiling decimal.Decimal
	// RepayAllBuffer covers interest accrued between quote and execution.
	RepayAllBuffer decimal.Decimal
	// WithdrawThresholdBuffer is added to the liquidation threshold when
	// sizing collateral withdrawals.
	WithdrawThresholdBuffer decimal.Decimal
	WithdrawMargin          decimal.Decimal
	// IsolationCeilingProximity is the fraction of the remaining debt
	// ceiling under which the borrow margin kicks in.
	IsolationCeilingProximity decimal.Decimal
	// NativeGasBuffer is kept in the wallet when supplying the native asset.
	NativeGasBuffer decimal.Decimal
	CapMaxedPercent decimal.Decimal
	// LegacyBorrowIncentives credits borrow-side incentives to earned yield
	// instead of offsetting debt yield.
	LegacyBorrowIncentives bool
}

// DefaultParams returns the production margins.
func DefaultParams() Params {
	return Params{
		BorrowMargin:              decimal.RequireFromString("0.99"),
		SupplyCapMargin:           decimal.RequireFromString("0.995"),
		StableBorrowCeiling:       decimal.RequireFromString("0.25"),
		RepayAllBuffer:            decimal.RequireFromString("1.0025"),
		WithdrawThresholdBuffer:   decimal.RequireFromString("0.01"),
		WithdrawMargin:            decimal.RequireFromString("0.99"),
		IsolationCeilingProximity: decimal.RequireFromString("0.01"),
		NativeGasBuffer:           decimal.RequireFromString("0.001"),
		CapMaxedPercent:           decimal.RequireFromString("99.99"),
	}
}

var errInvalidParams = errors.New("lending engine: invalid params")

// Validate ensures every margin is usable.
func (p Params) Validate() error {
	fractions := map[string]decimal.Decimal{
		"BorrowMargin":              p.BorrowMargin,
		"SupplyCapMargin":           p.SupplyCapMargin,
		"StableBorrowCeiling":       p.StableBorrowCeiling,
		"WithdrawMargin":            p.WithdrawMargin,
		"IsolationCeilingProximity": p.IsolationCeilingProximity,
	}
	for name, value := range fractions {
		if value.IsNegative() || value.GreaterThan(one) {
			return fmt.Errorf("%w: %s must be within [0,1], got %s", errInvalidParams, name, value)
		}
	}
	if p.RepayAllBuffer.LessThan(one) {
		return fmt.Errorf("%w: RepayAllBuffer must be at least 1, got %s", errInvalidParams, p.RepayAllBuffer)
	}
	if p.WithdrawThresholdBuffer.IsNegative() || p.NativeGasBuffer.IsNegative() {
		return fmt.Errorf("%w: buffers must not be negative", errInvalidParams)
	}
	if !p.CapMaxedPercent.IsPositive() || p.CapMaxedPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: CapMaxedPercent must be within (0,100], got %s", errInvalidParams, p.CapMaxedPercent)
	}
	return nil
}

// ActionPauses exposes switches for pausing individual lending flows. It
// satisfies common.PauseView keyed by ActionKind.PauseKey.
type ActionPauses struct {
	Supply           bool `toml:"Supply" yaml:"supply" json:"supply"`
	Withdraw         bool `toml:"Withdraw" yaml:"withdraw" json:"withdraw"`
	Borrow           bool `toml:"Borrow" yaml:"borrow" json:"borrow"`
	Repay            bool `toml:"Repay" yaml:"repay" json:"repay"`
	ToggleCollateral bool `toml:"ToggleCollateral" yaml:"toggleCollateral" json:"toggleCollateral"`
	SwitchRate       bool `toml:"SwitchRate" yaml:"switchRate" json:"switchRate"`
	SwitchDebt       bool `toml:"SwitchDebt" yaml:"switchDebt" json:"switchDebt"`
}

// IsPaused reports whether the flow named by module is switched off. The bare
// module name reports true only when every flow is paused.
func (p ActionPauses) IsPaused(module string) bool {
	switch module {
	case moduleName:
		return p.Supply && p.Withdraw && p.Borrow && p.Repay && p.ToggleCollateral && p.SwitchRate && p.SwitchDebt
	case ActionSupply.PauseKey():
		return p.Supply
	case ActionWithdraw.PauseKey():
		return p.Withdraw
	case ActionBorrow.PauseKey():
		return p.Borrow
	case ActionRepay.PauseKey():
		return p.Repay
	case ActionToggleCollateral.PauseKey():
		return p.ToggleCollateral
	case ActionSwitchRate.PauseKey():
		return p.SwitchRate
	case ActionSwitchDebt.PauseKey():
		return p.SwitchDebt
	default:
		return false
	}
}
