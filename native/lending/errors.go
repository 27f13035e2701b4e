package lending

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const moduleName = "lending"

// Precondition violations. These indicate an inconsistent snapshot or a
// malformed request, never a domain zero.
var (
	ErrReserveNotFound = errors.New("lending engine: reserve not found in snapshot")
	ErrEpochMismatch   = errors.New("lending engine: snapshot epochs differ")
	ErrInvalidAmount   = errors.New("lending engine: amount must not be negative")

	errUnknownAction   = errors.New("lending engine: unknown action")
	errUnknownRateMode = errors.New("lending engine: unknown rate mode")
	errUnknownReason   = errors.New("lending engine: unknown block reason")
	errMissingAsset    = errors.New("lending engine: asset required")
	errMissingTarget   = errors.New("lending engine: switch target required")
	errNilFormula      = errors.New("lending engine: solvency formula not configured")
)

// IsPrecondition reports whether err means the caller supplied inconsistent
// or malformed input.
func IsPrecondition(err error) bool {
	switch {
	case errors.Is(err, ErrReserveNotFound),
		errors.Is(err, ErrEpochMismatch),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, errUnknownAction),
		errors.Is(err, errUnknownRateMode),
		errors.Is(err, errMissingAsset),
		errors.Is(err, errMissingTarget):
		return true
	default:
		return false
	}
}

// BlockReason explains why an action cannot proceed.
type BlockReason uint8

const (
	BlockNone BlockReason = iota
	BlockReserveInactive
	BlockReserveFrozen
	BlockReservePaused
	BlockBorrowingDisabled
	BlockEModeCategoryMismatch
	BlockNotBorrowableInIsolation
	BlockStableBorrowDisabled
	BlockInsufficientLiquidity
	BlockExceedsCollateral
	BlockCapReached
	BlockDebtCeilingReached
	BlockNoDebt
	BlockNoBalance
	BlockCollateralDisabled
	BlockActionPaused
)

var blockReasonNames = [...]string{
	BlockNone:                     "none",
	BlockReserveInactive:          "reserve_inactive",
	BlockReserveFrozen:            "reserve_frozen",
	BlockReservePaused:            "reserve_paused",
	BlockBorrowingDisabled:        "borrowing_disabled",
	BlockEModeCategoryMismatch:    "emode_category_mismatch",
	BlockNotBorrowableInIsolation: "not_borrowable_in_isolation",
	BlockStableBorrowDisabled:     "stable_borrow_disabled",
	BlockInsufficientLiquidity:    "insufficient_liquidity",
	BlockExceedsCollateral:        "exceeds_collateral",
	BlockCapReached:               "cap_reached",
	BlockDebtCeilingReached:       "debt_ceiling_reached",
	BlockNoDebt:                   "no_debt",
	BlockNoBalance:                "no_balance",
	BlockCollateralDisabled:       "collateral_disabled",
	BlockActionPaused:             "action_paused",
}

func (r BlockReason) String() string {
	if int(r) < len(blockReasonNames) {
		return blockReasonNames[r]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r BlockReason) MarshalText() ([]byte, error) {
	if int(r) >= len(blockReasonNames) {
		return nil, fmt.Errorf("%w: %d", errUnknownReason, r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *BlockReason) UnmarshalText(text []byte) error {
	value := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range blockReasonNames {
		if name == value {
			*r = BlockReason(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", errUnknownReason, string(text))
}

// Decision is either an available capacity or the reason none is offered.
type Decision struct {
	result CapacityResult
	reason BlockReason
}

// Ok wraps an available capacity.
func Ok(result CapacityResult) Decision { return Decision{result: result} }

// Blocked records why the action is unavailable.
func Blocked(reason BlockReason) Decision { return Decision{reason: reason} }

// IsBlocked reports whether the decision carries a block reason.
func (d Decision) IsBlocked() bool { return d.reason != BlockNone }

// Result returns the capacity and true for Ok decisions.
func (d Decision) Result() (CapacityResult, bool) {
	if d.IsBlocked() {
		return CapacityResult{}, false
	}
	return d.result, true
}

// Reason returns the block reason, BlockNone for Ok decisions.
func (d Decision) Reason() BlockReason { return d.reason }

type decisionWire struct {
	Status  string          `json:"status"`
	Result  *CapacityResult `json:"result,omitempty"`
	Blocked *BlockReason    `json:"blocked,omitempty"`
}

// MarshalJSON renders {"status":"ok","result":...} or
// {"status":"blocked","blocked":"<reason>"}.
func (d Decision) MarshalJSON() ([]byte, error) {
	if d.IsBlocked() {
		reason := d.reason
		return json.Marshal(decisionWire{Status: "blocked", Blocked: &reason})
	}
	result := d.result
	return json.Marshal(decisionWire{Status: "ok", Result: &result})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decision) UnmarshalJSON(data []byte) error {
	var wire decisionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch {
	case wire.Blocked != nil && *wire.Blocked != BlockNone:
		*d = Blocked(*wire.Blocked)
	case wire.Result != nil:
		*d = Ok(*wire.Result)
	default:
		*d = Decision{}
	}
	return nil
}
