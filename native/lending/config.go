package lending

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Config is the file representation of Params. Margins are decimal strings so
// operators never round-trip them through floats; empty fields keep the
// defaults.
type Config struct {
	BorrowMargin              string       `toml:"BorrowMargin"`
	SupplyCapMargin           string       `toml:"SupplyCapMargin"`
	StableBorrowCeiling       string       `toml:"StableBorrowCeiling"`
	RepayAllBuffer            string       `toml:"RepayAllBuffer"`
	WithdrawThresholdBuffer   string       `toml:"WithdrawThresholdBuffer"`
	WithdrawMargin            string       `toml:"WithdrawMargin"`
	IsolationCeilingProximity string       `toml:"IsolationCeilingProximity"`
	NativeGasBuffer           string       `toml:"NativeGasBuffer"`
	CapMaxedPercent           string       `toml:"CapMaxedPercent"`
	LegacyBorrowIncentives    bool         `toml:"LegacyBorrowIncentives"`
	Pauses                    ActionPauses `toml:"pauses"`
}

// Params resolves the configured margins on top of DefaultParams.
func (c Config) Params() (Params, error) {
	params := DefaultParams()
	fields := []struct {
		name  string
		raw   string
		field *decimal.Decimal
	}{
		{"BorrowMargin", c.BorrowMargin, &params.BorrowMargin},
		{"SupplyCapMargin", c.SupplyCapMargin, &params.SupplyCapMargin},
		{"StableBorrowCeiling", c.StableBorrowCeiling, &params.StableBorrowCeiling},
		{"RepayAllBuffer", c.RepayAllBuffer, &params.RepayAllBuffer},
		{"WithdrawThresholdBuffer", c.WithdrawThresholdBuffer, &params.WithdrawThresholdBuffer},
		{"WithdrawMargin", c.WithdrawMargin, &params.WithdrawMargin},
		{"IsolationCeilingProximity", c.IsolationCeilingProximity, &params.IsolationCeilingProximity},
		{"NativeGasBuffer", c.NativeGasBuffer, &params.NativeGasBuffer},
		{"CapMaxedPercent", c.CapMaxedPercent, &params.CapMaxedPercent},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s: %v", errInvalidParams, f.name, err)
		}
		*f.field = value
	}
	params.LegacyBorrowIncentives = c.LegacyBorrowIncentives
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}
