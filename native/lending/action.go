package lending

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ActionKind enumerates the user flows the engine can size.
type ActionKind uint8

const (
	ActionSupply ActionKind = iota + 1
	ActionWithdraw
	ActionBorrow
	ActionRepay
	ActionToggleCollateral
	ActionSwitchRate
	ActionSwitchDebt
)

var actionNames = map[ActionKind]string{
	ActionSupply:           "supply",
	ActionWithdraw:         "withdraw",
	ActionBorrow:           "borrow",
	ActionRepay:            "repay",
	ActionToggleCollateral: "toggle_collateral",
	ActionSwitchRate:       "switch_rate",
	ActionSwitchDebt:       "switch_debt",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// PauseKey is the identifier checked against the configured pause switches.
func (k ActionKind) PauseKey() string { return moduleName + "." + k.String() }

// MarshalText implements encoding.TextMarshaler.
func (k ActionKind) MarshalText() ([]byte, error) {
	if _, ok := actionNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", errUnknownAction, k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseActionKind resolves the textual action name.
func ParseActionKind(value string) (ActionKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for kind, name := range actionNames {
		if name == normalized {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errUnknownAction, value)
}

// ActionRequest describes the single action being sized. Only the fields
// relevant to Kind are consulted.
type ActionRequest struct {
	Kind  ActionKind `json:"kind"`
	Asset string     `json:"asset"`

	// RateMode applies to Borrow, Repay and SwitchRate (the mode being left).
	RateMode RateMode `json:"rateMode"`
	// TargetAsset is the reserve that receives the debt on SwitchDebt.
	TargetAsset string `json:"targetAsset,omitempty"`

	// WalletBalance bounds Supply and Repay.
	WalletBalance decimal.Decimal `json:"walletBalance"`
	IsNativeAsset bool            `json:"isNativeAsset,omitempty"`
	// NativeBuffer overrides Params.NativeGasBuffer when set. An explicit zero
	// keeps no gas back.
	NativeBuffer *decimal.Decimal `json:"nativeBuffer,omitempty"`

	RepayWithCollateral bool `json:"repayWithCollateral,omitempty"`
	RepayAll            bool `json:"repayAll,omitempty"`
}

// Validate checks the request shape before any reserve is resolved.
func (r ActionRequest) Validate() error {
	if _, ok := actionNames[r.Kind]; !ok {
		return fmt.Errorf("%w: %d", errUnknownAction, r.Kind)
	}
	if strings.TrimSpace(r.Asset) == "" {
		return errMissingAsset
	}
	if r.Kind == ActionSwitchDebt && strings.TrimSpace(r.TargetAsset) == "" {
		return errMissingTarget
	}
	if r.WalletBalance.IsNegative() || (r.NativeBuffer != nil && r.NativeBuffer.IsNegative()) {
		return ErrInvalidAmount
	}
	return nil
}
