package lending

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestParseRaw(t *testing.T) {
	cases := map[string]uint64{
		"":           0,
		"1234500":    1234500,
		"0x0f":       15,
		"0X00":       0,
		" 42 ":       42,
		"0x00000010": 16,
	}
	for input, want := range cases {
		raw, err := ParseRaw(input)
		require.NoErrorf(t, err, "parse %q", input)
		require.Equalf(t, want, raw.Uint64(), "parse %q", input)
	}

	_, err := ParseRaw("12ab")
	require.True(t, errors.Is(err, ErrInvalidAmount))
}

func TestFormatUnitsRoundTrip(t *testing.T) {
	formatted := FormatUnits(uint256.NewInt(1234500), 6)
	requireDecimal(t, "1.2345", formatted)

	raw, err := ToUnits(d("1.2345678"), 6)
	require.NoError(t, err)
	require.Equal(t, uint64(1234567), raw.Uint64())

	_, err = ToUnits(d("-1"), 6)
	require.ErrorIs(t, err, ErrInvalidAmount)

	require.True(t, FormatUnits(nil, 18).IsZero())
}

func TestRayRateToAPY(t *testing.T) {
	require.True(t, RayRateToAPY(nil).IsZero())

	// 5% APR expressed in ray.
	rate, err := ParseRaw("50000000000000000000000000")
	require.NoError(t, err)
	requireDecimal(t, "0.05", RayToRate(rate))

	apy := RayRateToAPY(rate)
	require.Truef(t, apy.GreaterThan(d("0.0512")) && apy.LessThan(d("0.0513")), "unexpected apy %s", apy)
}
