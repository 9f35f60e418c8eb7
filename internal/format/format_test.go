package format

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRupiah(t *testing.T) {
	assert.Equal(t, "Rp 1.500.000", Rupiah(1500000))
	assert.Equal(t, "Rp 0", Rupiah(0))
	assert.Equal(t, "Rp 999", Rupiah(999))
	assert.Equal(t, "-Rp 1.500", Rupiah(-1500))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "1.000", Number(1000))
	assert.Equal(t, "12.345.678", Number(12345678))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12,5%", Percent(1, 8))
	assert.Equal(t, "0%", Percent(5, 0))
	assert.Equal(t, "100,0%", Percent(3, 3))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]int64{
		"Rp 1.500.000":  1500000,
		"Rp1.500.000":   1500000,
		"rp. 2.000":     2000,
		"1.500.000":     1500000,
		"1500000":       1500000,
		"1.500,00":      1500,
		"1.500,75":      1500,
		"  250  ":       250,
		"-Rp 1.500":     -1500,
		"12.5":          12,
		"Rp 1.000.000,": 1000000,
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "Rp", "abc", "1.50.000", "12a", "1,2x"} {
		_, err := ParseAmount(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidAmount), in)
	}
}

func TestParseAmountRange(t *testing.T) {
	got, err := ParseAmount("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)

	for _, in := range []string{"9223372036854775808", "9.223.372.036.854.775.810", "99999999999999999999"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}
