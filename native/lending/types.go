package lending

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RateMode selects which debt bucket a borrow or repay targets.
type RateMode uint8

const (
	RateModeVariable RateMode = iota
	RateModeStable
)

func (m RateMode) String() string {
	if m == RateModeStable {
		return "stable"
	}
	return "variable"
}

// MarshalText implements encoding.TextMarshaler.
func (m RateMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RateMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "variable":
		*m = RateModeVariable
	case "stable":
		*m = RateModeStable
	default:
		return fmt.Errorf("%w: %q", errUnknownRateMode, string(text))
	}
	return nil
}

// Incentive is a reward stream attached to one side of a reserve.
type Incentive struct {
	RewardToken  string          `json:"rewardToken"`
	IncentiveAPR decimal.Decimal `json:"incentiveAPR"`
}

// Active reports whether the incentive contributes to yield.
func (i Incentive) Active() bool { return i.IncentiveAPR.IsPositive() }

// ReserveSnapshot captures the per-asset facts of one listed reserve at a
// single data epoch. Amounts are human-readable values in the asset's units;
// a zero cap means the reserve is uncapped.
type ReserveSnapshot struct {
	Asset    string `json:"asset"`
	Symbol   string `json:"symbol,omitempty"`
	Epoch    uint64 `json:"epoch"`
	Decimals int32  `json:"decimals"`

	PriceInMarketReferenceCurrency decimal.Decimal `json:"priceInMarketReferenceCurrency"`
	PriceUSD                       decimal.Decimal `json:"priceUSD"`

	TotalLiquidity      decimal.Decimal `json:"totalLiquidity"`
	TotalDebt           decimal.Decimal `json:"totalDebt"`
	AvailableLiquidity  decimal.Decimal `json:"availableLiquidity"`
	UnborrowedLiquidity decimal.Decimal `json:"unborrowedLiquidity"`

	SupplyCap              decimal.Decimal `json:"supplyCap"`
	BorrowCap              decimal.Decimal `json:"borrowCap"`
	DebtCeiling            decimal.Decimal `json:"debtCeiling"`
	IsolationModeTotalDebt decimal.Decimal `json:"isolationModeTotalDebt"`

	LiquidationThreshold      decimal.Decimal `json:"liquidationThreshold"`
	EModeCategoryID           uint8           `json:"eModeCategoryId"`
	EModeLiquidationThreshold decimal.Decimal `json:"eModeLiquidationThreshold"`

	IsActive                 bool `json:"isActive"`
	IsFrozen                 bool `json:"isFrozen"`
	IsPaused                 bool `json:"isPaused"`
	BorrowingEnabled         bool `json:"borrowingEnabled"`
	StableBorrowRateEnabled  bool `json:"stableBorrowRateEnabled"`
	UsageAsCollateralEnabled bool `json:"usageAsCollateralEnabled"`
	BorrowableInIsolation    bool `json:"borrowableInIsolation"`
	IsIsolated               bool `json:"isIsolated"`

	SupplyAPY                decimal.Decimal `json:"supplyAPY"`
	VariableBorrowAPY        decimal.Decimal `json:"variableBorrowAPY"`
	StableBorrowAPY          decimal.Decimal `json:"stableBorrowAPY"`
	SupplyIncentives         []Incentive     `json:"supplyIncentives,omitempty"`
	VariableBorrowIncentives []Incentive     `json:"variableBorrowIncentives,omitempty"`
	StableBorrowIncentives   []Incentive     `json:"stableBorrowIncentives,omitempty"`
}

// Unborrowed returns the pool cash that has not been lent out. Snapshots that
// omit the field fall back to the available liquidity, which can never exceed
// it.
func (r ReserveSnapshot) Unborrowed() decimal.Decimal {
	if r.UnborrowedLiquidity.IsZero() && r.AvailableLiquidity.IsPositive() {
		return r.AvailableLiquidity
	}
	return r.UnborrowedLiquidity
}

// AvailableLiquidityInReferenceCurrency prices the available liquidity.
func (r ReserveSnapshot) AvailableLiquidityInReferenceCurrency() decimal.Decimal {
	return r.AvailableLiquidity.Mul(r.PriceInMarketReferenceCurrency)
}

// Clone returns a deep copy of the reserve snapshot.
func (r ReserveSnapshot) Clone() ReserveSnapshot {
	clone := r
	clone.SupplyIncentives = append([]Incentive(nil), r.SupplyIncentives...)
	clone.VariableBorrowIncentives = append([]Incentive(nil), r.VariableBorrowIncentives...)
	clone.StableBorrowIncentives = append([]Incentive(nil), r.StableBorrowIncentives...)
	return clone
}

// UserReservePosition is one user's exposure to one reserve.
type UserReservePosition struct {
	Asset                          string          `json:"asset"`
	UnderlyingBalance              decimal.Decimal `json:"underlyingBalance"`
	UnderlyingBalanceUSD           decimal.Decimal `json:"underlyingBalanceUSD"`
	VariableBorrows                decimal.Decimal `json:"variableBorrows"`
	VariableBorrowsUSD             decimal.Decimal `json:"variableBorrowsUSD"`
	StableBorrows                  decimal.Decimal `json:"stableBorrows"`
	StableBorrowsUSD               decimal.Decimal `json:"stableBorrowsUSD"`
	StableBorrowAPY                decimal.Decimal `json:"stableBorrowAPY"`
	UsageAsCollateralEnabledOnUser bool            `json:"usageAsCollateralEnabledOnUser"`
}

// Debt returns the outstanding borrow for the requested rate mode.
func (p UserReservePosition) Debt(mode RateMode) decimal.Decimal {
	if mode == RateModeStable {
		return p.StableBorrows
	}
	return p.VariableBorrows
}

// TotalDebt sums both borrow buckets.
func (p UserReservePosition) TotalDebt() decimal.Decimal {
	return p.VariableBorrows.Add(p.StableBorrows)
}

// UserPositionSnapshot aggregates one user's account at a single epoch.
type UserPositionSnapshot struct {
	User  string `json:"user"`
	Epoch uint64 `json:"epoch"`

	HealthFactor                        decimal.Decimal `json:"healthFactor"`
	TotalCollateralInReferenceCurrency  decimal.Decimal `json:"totalCollateralInReferenceCurrency"`
	TotalBorrowsInReferenceCurrency     decimal.Decimal `json:"totalBorrowsInReferenceCurrency"`
	AvailableBorrowsInReferenceCurrency decimal.Decimal `json:"availableBorrowsInReferenceCurrency"`
	AvailableBorrowsUSD                 decimal.Decimal `json:"availableBorrowsUSD"`
	CurrentLiquidationThreshold         decimal.Decimal `json:"currentLiquidationThreshold"`
	NetWorthUSD                         decimal.Decimal `json:"netWorthUSD"`

	IsInIsolationMode   bool             `json:"isInIsolationMode"`
	IsolatedReserve     *ReserveSnapshot `json:"isolatedReserve,omitempty"`
	IsInEmode           bool             `json:"isInEmode"`
	UserEmodeCategoryID uint8            `json:"userEmodeCategoryId"`

	Reserves []UserReservePosition `json:"reserves"`
}

// Position returns the user's position in asset. A user with no exposure gets
// a zero position rather than an error.
func (u UserPositionSnapshot) Position(asset string) UserReservePosition {
	for _, pos := range u.Reserves {
		if equalAsset(pos.Asset, asset) {
			return pos
		}
	}
	return UserReservePosition{Asset: asset}
}

// HasDebt reports whether the user owes anything across the market.
func (u UserPositionSnapshot) HasDebt() bool {
	return u.TotalBorrowsInReferenceCurrency.IsPositive()
}

// Clone returns a deep copy of the user snapshot.
func (u UserPositionSnapshot) Clone() UserPositionSnapshot {
	clone := u
	clone.Reserves = append([]UserReservePosition(nil), u.Reserves...)
	if u.IsolatedReserve != nil {
		isolated := u.IsolatedReserve.Clone()
		clone.IsolatedReserve = &isolated
	}
	return clone
}

// equalAsset compares asset identifiers case-insensitively so checksummed and
// lower-case addresses match.
func equalAsset(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Market is the full reserve list of one epoch.
type Market struct {
	Epoch    uint64            `json:"epoch"`
	Reserves []ReserveSnapshot `json:"reserves"`
}

// Reserve resolves a reserve by asset.
func (m Market) Reserve(asset string) (ReserveSnapshot, error) {
	for _, reserve := range m.Reserves {
		if equalAsset(reserve.Asset, asset) {
			return reserve, nil
		}
	}
	return ReserveSnapshot{}, fmt.Errorf("%w: %s", ErrReserveNotFound, asset)
}

// CapacityResult is the largest amount an action may move right now.
type CapacityResult struct {
	MaxAmount     decimal.Decimal `json:"maxAmount"`
	MarginApplied bool            `json:"marginApplied"`
}

// CapUsage describes how much of a single cap is consumed.
type CapUsage struct {
	PercentUsed float64 `json:"percentUsed"`
	IsMaxed     bool    `json:"isMaxed"`
}

// CapReport bundles the three cap usages of one reserve.
type CapReport struct {
	Asset       string   `json:"asset"`
	SupplyCap   CapUsage `json:"supplyCap"`
	BorrowCap   CapUsage `json:"borrowCap"`
	DebtCeiling CapUsage `json:"debtCeiling"`
}

// HealthFactorProjection is the health factor after a hypothetical action.
type HealthFactorProjection struct {
	ProjectedHealthFactor decimal.Decimal `json:"projectedHealthFactor"`
	Unchanged             bool            `json:"unchanged"`
}

// Yield is the USD-weighted portfolio yield, expressed in percent.
type Yield struct {
	EarnedAPY decimal.Decimal `json:"earnedAPY"`
	DebtAPY   decimal.Decimal `json:"debtAPY"`
	NetAPY    decimal.Decimal `json:"netAPY"`
}
