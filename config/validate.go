package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// MinBorrowMargin is the lowest borrow margin an operator may configure.
	// Lower values hide most of a user's capacity.
	MinBorrowMargin = decimal.RequireFromString("0.9")
	// MinCapMaxedPercent keeps the maxed flag meaningful.
	MinCapMaxedPercent = decimal.NewFromInt(90)
)

func ValidateRisk(r Risk) error {
	if err := r.Params.Validate(); err != nil {
		return err
	}
	if r.Params.BorrowMargin.LessThan(MinBorrowMargin) {
		return fmt.Errorf("lending: BorrowMargin %s below minimum %s", r.Params.BorrowMargin, MinBorrowMargin)
	}
	if r.Params.CapMaxedPercent.LessThan(MinCapMaxedPercent) {
		return fmt.Errorf("lending: CapMaxedPercent %s below minimum %s", r.Params.CapMaxedPercent, MinCapMaxedPercent)
	}
	return nil
}
