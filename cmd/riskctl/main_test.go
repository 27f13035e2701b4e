package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lendingrisk/native/lending"
)

const snapshotJSON = `{
  "market": {
    "epoch": 3,
    "reserves": [{
      "asset": "0xusdc",
      "symbol": "USDC",
      "epoch": 3,
      "decimals": 6,
      "priceInMarketReferenceCurrency": "1",
      "priceUSD": "1",
      "totalLiquidity": "1000000",
      "totalDebt": "400000",
      "availableLiquidity": "600000",
      "supplyCap": "2000000",
      "liquidationThreshold": "0.85",
      "isActive": true,
      "borrowingEnabled": true,
      "usageAsCollateralEnabled": true,
      "supplyAPY": "0.05",
      "variableBorrowAPY": "0.1"
    }]
  },
  "user": {
    "user": "0xalice",
    "epoch": 3,
    "healthFactor": "-1",
    "totalCollateralInReferenceCurrency": "1000",
    "availableBorrowsInReferenceCurrency": "100",
    "currentLiquidationThreshold": "0.8",
    "netWorthUSD": "1000",
    "reserves": [{
      "asset": "0xusdc",
      "underlyingBalance": "1000",
      "underlyingBalanceUSD": "1000",
      "usageAsCollateralEnabledOnUser": true
    }]
  }
}`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestCapsCommand(t *testing.T) {
	path := writeFile(t, "snapshot.json", snapshotJSON)
	var out bytes.Buffer
	require.NoError(t, run([]string{"caps", "-snapshot", path}, &out))

	var reports []lending.CapReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, 1)
	require.Equal(t, "0xusdc", reports[0].Asset)
	require.InDelta(t, 50.0, reports[0].SupplyCap.PercentUsed, 1e-9)
}

func TestDecideCommand(t *testing.T) {
	path := writeFile(t, "snapshot.json", snapshotJSON)
	var out bytes.Buffer
	require.NoError(t, run([]string{"decide", "-snapshot", path, "-action", "borrow", "-asset", "0xusdc"}, &out))
	require.JSONEq(t, `{"status":"ok","result":{"maxAmount":"100","marginApplied":false}}`, out.String())

	out.Reset()
	require.NoError(t, run([]string{"decide", "-snapshot", path, "-action", "repay", "-asset", "0xusdc"}, &out))
	require.JSONEq(t, `{"status":"blocked","blocked":"no_debt"}`, out.String())
}

func TestDecideHonoursRiskPauses(t *testing.T) {
	snapshot := writeFile(t, "snapshot.json", snapshotJSON)
	risk := writeFile(t, "risk.toml", "[lending.pauses]\nBorrow = true\n")
	var out bytes.Buffer
	require.NoError(t, run([]string{"decide", "-snapshot", snapshot, "-risk", risk, "-action", "borrow", "-asset", "0xusdc"}, &out))
	require.JSONEq(t, `{"status":"blocked","blocked":"action_paused"}`, out.String())
}

func TestProjectAndYieldCommands(t *testing.T) {
	path := writeFile(t, "snapshot.json", snapshotJSON)
	var out bytes.Buffer
	require.NoError(t, run([]string{"project", "-snapshot", path, "-asset", "0xusdc", "-debt", "400"}, &out))
	var projection lending.HealthFactorProjection
	require.NoError(t, json.Unmarshal(out.Bytes(), &projection))
	require.Equal(t, "2", projection.ProjectedHealthFactor.String())

	out.Reset()
	require.NoError(t, run([]string{"yield", "-snapshot", path}, &out))
	var yield lending.Yield
	require.NoError(t, json.Unmarshal(out.Bytes(), &yield))
	require.Equal(t, "5", yield.NetAPY.String())
}

func TestCommandErrors(t *testing.T) {
	path := writeFile(t, "snapshot.json", snapshotJSON)
	var out bytes.Buffer

	require.ErrorIs(t, run(nil, &out), errUsage)
	require.ErrorIs(t, run([]string{"liquidate"}, &out), errUsage)
	require.Error(t, run([]string{"caps"}, &out))
	require.Error(t, run([]string{"decide", "-snapshot", path, "-action", "liquidate", "-asset", "0xusdc"}, &out))
	require.ErrorIs(t, run([]string{"decide", "-snapshot", path, "-action", "borrow", "-asset", "0xdai"}, &out), lending.ErrReserveNotFound)

	missingRisk := filepath.Join(t.TempDir(), "typo.toml")
	require.Error(t, run([]string{"caps", "-snapshot", path, "-risk", missingRisk}, &out))
	require.NoFileExists(t, missingRisk)

	noUser := writeFile(t, "market.json", `{"market":{"epoch":3,"reserves":[]}}`)
	require.Error(t, run([]string{"yield", "-snapshot", noUser}, &out))
}
