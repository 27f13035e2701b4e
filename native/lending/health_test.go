package lending

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProjectIsolatedReserveOutsideIsolationIsUnchanged(t *testing.T) {
	engine := newTestEngine(t)
	reserve := usdcReserve()
	reserve.IsIsolated = true
	user := borrowingUser()

	for _, delta := range []string{"0", "100", "-500", "1000000"} {
		projection := engine.Project(user, reserve, d(delta), d(delta))
		require.True(t, projection.Unchanged)
		require.True(t, projection.ProjectedHealthFactor.Equal(user.HealthFactor))
	}
}

func TestProjectAddsCollateral(t *testing.T) {
	engine := newTestEngine(t)
	reserve := wethReserve()
	user := borrowingUser()

	projection := engine.Project(user, reserve, d("1000"), decimal.Zero)

	require.False(t, projection.Unchanged)
	requireDecimal(t, "4", projection.ProjectedHealthFactor)
}

func TestProjectAddsDebt(t *testing.T) {
	engine := newTestEngine(t)
	user := borrowingUser()

	projection := engine.Project(user, wethReserve(), decimal.Zero, d("400"))

	requireDecimal(t, "1", projection.ProjectedHealthFactor)
}

func TestProjectRepayingEverythingIsInfinite(t *testing.T) {
	engine := newTestEngine(t)
	user := borrowingUser()

	projection := engine.Project(user, wethReserve(), decimal.Zero, d("-400"))

	requireDecimal(t, "-1", projection.ProjectedHealthFactor)
}

func TestProjectIsMonotonic(t *testing.T) {
	engine := newTestEngine(t)
	reserve := usdcReserve()
	user := borrowingUser()
	current := user.HealthFactor

	previous := current
	for _, delta := range []string{"0.01", "1", "50", "400", "12345.678"} {
		projection := engine.Project(user, reserve, d(delta), decimal.Zero)
		require.Truef(t, projection.ProjectedHealthFactor.GreaterThanOrEqual(current), "collateral %s lowered HF to %s", delta, projection.ProjectedHealthFactor)
		require.True(t, projection.ProjectedHealthFactor.GreaterThanOrEqual(previous))
		previous = projection.ProjectedHealthFactor
	}

	previous = current
	for _, delta := range []string{"0.01", "1", "50", "400", "12345.678"} {
		projection := engine.Project(user, reserve, decimal.Zero, d(delta))
		require.Truef(t, projection.ProjectedHealthFactor.LessThanOrEqual(current), "debt %s raised HF to %s", delta, projection.ProjectedHealthFactor)
		require.True(t, projection.ProjectedHealthFactor.LessThanOrEqual(previous))
		previous = projection.ProjectedHealthFactor
	}
}

func TestProjectIsolationEligibility(t *testing.T) {
	engine := newTestEngine(t)
	isolated := wethReserve()
	isolated.IsIsolated = true
	isolated.DebtCeiling = d("1000000")
	user := borrowingUser()
	user.IsInIsolationMode = true
	user.IsolatedReserve = &isolated

	projection := engine.Project(user, isolated, d("1000"), decimal.Zero)
	require.False(t, projection.Unchanged)
	requireDecimal(t, "4", projection.ProjectedHealthFactor)

	other := usdcReserve()
	projection = engine.Project(user, other, d("1000"), decimal.Zero)
	require.True(t, projection.Unchanged)
}

func TestProjectZeroDeltaKeepsCurrentValue(t *testing.T) {
	engine := newTestEngine(t)
	user := borrowingUser()
	user.HealthFactor = d("1.987654321")

	projection := engine.Project(user, usdcReserve(), decimal.Zero, decimal.Zero)

	require.True(t, projection.Unchanged)
	requireDecimal(t, "1.987654321", projection.ProjectedHealthFactor)
}
