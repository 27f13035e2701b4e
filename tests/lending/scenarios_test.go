package lending_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lendingrisk/native/healthfactor"
	"lendingrisk/native/lending"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newEngine(t *testing.T) *lending.Engine {
	t.Helper()
	engine, err := lending.NewEngine(lending.DefaultParams(), healthfactor.FromBalances)
	require.NoError(t, err)
	return engine
}

func reserve(asset string) lending.ReserveSnapshot {
	return lending.ReserveSnapshot{
		Asset:                          asset,
		Epoch:                          1,
		Decimals:                       6,
		PriceInMarketReferenceCurrency: dec("1"),
		PriceUSD:                       dec("1"),
		LiquidationThreshold:           dec("0.8"),
		IsActive:                       true,
		BorrowingEnabled:               true,
		UsageAsCollateralEnabled:       true,
	}
}

func user(allowance string) lending.UserPositionSnapshot {
	return lending.UserPositionSnapshot{
		User:                                "0xuser",
		Epoch:                               1,
		HealthFactor:                        healthfactor.Infinite,
		TotalCollateralInReferenceCurrency:  dec("5000"),
		AvailableBorrowsInReferenceCurrency: dec(allowance),
		CurrentLiquidationThreshold:         dec("0.8"),
		NetWorthUSD:                         dec("5000"),
	}
}

func TestScenarioSupplyCapNearlyMaxed(t *testing.T) {
	params := lending.DefaultParams()
	r := reserve("0xusdc")
	r.SupplyCap = dec("1000")
	r.TotalLiquidity = dec("995")

	usage := params.SupplyCapUsage(r)
	require.InDelta(t, 99.5, usage.PercentUsed, 1e-9)
	require.False(t, usage.IsMaxed)

	r.TotalLiquidity = dec("999.95")
	usage = params.SupplyCapUsage(r)
	require.True(t, usage.IsMaxed)

	engine := newEngine(t)
	supply := lending.ActionRequest{Kind: lending.ActionSupply, Asset: "0xusdc", WalletBalance: dec("10")}
	decision, err := engine.Evaluate(lending.Market{Epoch: 1, Reserves: []lending.ReserveSnapshot{r}}, user("0"), supply)
	require.NoError(t, err)
	result, ok := decision.Result()
	require.True(t, ok)
	require.True(t, result.MarginApplied)
	require.Equal(t, "0.04975", result.MaxAmount.String())

	r.TotalLiquidity = dec("1000")
	decision, err = engine.Evaluate(lending.Market{Epoch: 1, Reserves: []lending.ReserveSnapshot{r}}, user("0"), supply)
	require.NoError(t, err)
	require.Equal(t, lending.BlockCapReached, decision.Reason())
}

func TestScenarioUncappedBorrowBoundedByLiquidityAndAllowance(t *testing.T) {
	engine := newEngine(t)
	r := reserve("0xdai")
	r.TotalDebt = dec("500000")
	r.TotalLiquidity = dec("500250")
	r.AvailableLiquidity = dec("250")

	require.Zero(t, lending.DefaultParams().BorrowCapUsage(r).PercentUsed)

	result := engine.MaxBorrow(r, user("1000"), lending.RateModeVariable)
	require.True(t, result.MarginApplied)
	require.Equal(t, "247.5", result.MaxAmount.String())

	result = engine.MaxBorrow(r, user("100"), lending.RateModeVariable)
	require.False(t, result.MarginApplied)
	require.Equal(t, "100", result.MaxAmount.String())
}

func TestScenarioAllowanceConvertedAtReservePrice(t *testing.T) {
	engine := newEngine(t)
	r := reserve("0xlink")
	r.PriceInMarketReferenceCurrency = dec("10")
	r.TotalLiquidity = dec("1000000")
	r.AvailableLiquidity = dec("1000000")

	result := engine.MaxBorrow(r, user("100"), lending.RateModeVariable)
	require.False(t, result.MarginApplied)
	require.Equal(t, "10", result.MaxAmount.String())
}

func TestScenarioIsolatedAssetOutsideIsolationMode(t *testing.T) {
	engine := newEngine(t)
	r := reserve("0xgov")
	r.IsIsolated = true
	borrower := user("100")
	borrower.HealthFactor = dec("3")
	borrower.TotalBorrowsInReferenceCurrency = dec("1000")

	for _, delta := range []struct{ collateral, debt string }{
		{"1000", "0"},
		{"0", "500"},
		{"-4000", "2000"},
	} {
		projection := engine.Project(borrower, r, dec(delta.collateral), dec(delta.debt))
		require.True(t, projection.Unchanged)
		require.True(t, projection.ProjectedHealthFactor.Equal(dec("3")))
	}
}

func TestScenarioPausedFlowsBlockOnlyTheirAction(t *testing.T) {
	engine := newEngine(t)
	engine.SetPauses(lending.ActionPauses{Borrow: true})
	r := reserve("0xusdc")
	r.TotalLiquidity = dec("1000")
	r.AvailableLiquidity = dec("1000")
	market := lending.Market{Epoch: 1, Reserves: []lending.ReserveSnapshot{r}}

	decision, err := engine.Evaluate(market, user("100"), lending.ActionRequest{Kind: lending.ActionBorrow, Asset: "0xusdc"})
	require.NoError(t, err)
	require.Equal(t, lending.BlockActionPaused, decision.Reason())

	decision, err = engine.Evaluate(market, user("100"), lending.ActionRequest{
		Kind:          lending.ActionSupply,
		Asset:         "0xusdc",
		WalletBalance: dec("25"),
	})
	require.NoError(t, err)
	result, ok := decision.Result()
	require.True(t, ok)
	require.Equal(t, "25", result.MaxAmount.String())
}

func TestScenarioStaleUserSnapshotRejected(t *testing.T) {
	engine := newEngine(t)
	market := lending.Market{Epoch: 2, Reserves: []lending.ReserveSnapshot{reserve("0xusdc")}}
	market.Reserves[0].Epoch = 2

	_, err := engine.Evaluate(market, user("100"), lending.ActionRequest{Kind: lending.ActionBorrow, Asset: "0xusdc"})
	require.ErrorIs(t, err, lending.ErrEpochMismatch)
	require.True(t, lending.IsPrecondition(err))
}
