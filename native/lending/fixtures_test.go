package lending

import (
	"testing"

	"github.com/shopspring/decimal"

	"lendingrisk/native/healthfactor"
)

const testEpoch = 7

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultParams(), healthfactor.FromBalances)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func usdcReserve() ReserveSnapshot {
	return ReserveSnapshot{
		Asset:                          "0xusdc",
		Symbol:                         "USDC",
		Epoch:                          testEpoch,
		Decimals:                       6,
		PriceInMarketReferenceCurrency: d("1"),
		PriceUSD:                       d("1"),
		TotalLiquidity:                 d("1000000"),
		TotalDebt:                      d("400000"),
		AvailableLiquidity:             d("600000"),
		UnborrowedLiquidity:            d("600000"),
		LiquidationThreshold:           d("0.85"),
		IsActive:                       true,
		BorrowingEnabled:               true,
		StableBorrowRateEnabled:        true,
		UsageAsCollateralEnabled:       true,
		SupplyAPY:                      d("0.05"),
		VariableBorrowAPY:              d("0.1"),
		StableBorrowAPY:                d("0.12"),
	}
}

func wethReserve() ReserveSnapshot {
	return ReserveSnapshot{
		Asset:                          "0xweth",
		Symbol:                         "WETH",
		Epoch:                          testEpoch,
		Decimals:                       18,
		PriceInMarketReferenceCurrency: d("2000"),
		PriceUSD:                       d("2000"),
		TotalLiquidity:                 d("5000"),
		TotalDebt:                      d("1000"),
		AvailableLiquidity:             d("4000"),
		UnborrowedLiquidity:            d("4000"),
		LiquidationThreshold:           d("0.8"),
		IsActive:                       true,
		BorrowingEnabled:               true,
		UsageAsCollateralEnabled:       true,
		SupplyAPY:                      d("0.02"),
		VariableBorrowAPY:              d("0.04"),
	}
}

func freshUser() UserPositionSnapshot {
	return UserPositionSnapshot{
		User:                                "0xalice",
		Epoch:                               testEpoch,
		HealthFactor:                        healthfactor.Infinite,
		TotalCollateralInReferenceCurrency:  d("1000"),
		TotalBorrowsInReferenceCurrency:     d("0"),
		AvailableBorrowsInReferenceCurrency: d("100"),
		CurrentLiquidationThreshold:         d("0.8"),
		NetWorthUSD:                         d("1000"),
	}
}

func borrowingUser() UserPositionSnapshot {
	user := freshUser()
	user.HealthFactor = d("2")
	user.TotalBorrowsInReferenceCurrency = d("400")
	user.AvailableBorrowsInReferenceCurrency = d("300")
	return user
}

func testMarket(reserves ...ReserveSnapshot) Market {
	return Market{Epoch: testEpoch, Reserves: reserves}
}
