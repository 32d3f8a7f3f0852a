package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegion_Currency(t *testing.T) {
	tests := []struct {
		region Region
		code   string
		symbol string
	}{
		{RegionCN, "CNY", "¥"},
		{RegionHK, "HKD", "HK$"},
		{RegionUS, "USD", "$"},
		{RegionJP, "JPY", "JP¥"},
		{RegionNZ, "NZD", "NZ$"},
		{RegionTW, "TWD", "NT$"},
		{RegionOther, "USD", "$"},
	}

	for _, tt := range tests {
		t.Run(string(tt.region), func(t *testing.T) {
			assert.True(t, tt.region.Valid())
			assert.Equal(t, tt.code, tt.region.CurrencyCode())
			assert.Equal(t, tt.symbol, tt.region.CurrencySymbol())
		})
	}
}

func TestRegion_IsForeignTo(t *testing.T) {
	assert.False(t, RegionCN.IsForeignTo(RegionCN))
	assert.True(t, RegionUS.IsForeignTo(RegionCN))
	assert.True(t, RegionOther.IsForeignTo(RegionUS))
}

func TestRegion_Location(t *testing.T) {
	for _, r := range AllRegions() {
		t.Run(string(r), func(t *testing.T) {
			assert.NotNil(t, r.Location())
		})
	}
	assert.Equal(t, "Asia/Hong_Kong", RegionHK.Location().String())
	assert.Equal(t, time.UTC, Region("EU").Location())
}

func TestCapYear(t *testing.T) {
	instant := time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 2025, CapYear(instant, RegionJP))
	assert.Equal(t, 2025, CapYear(instant, RegionCN))
	assert.Equal(t, 2024, CapYear(instant, RegionUS))
	assert.Equal(t, 2024, CapYear(instant, RegionOther))
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion(" hk ")
	require.NoError(t, err)
	assert.Equal(t, RegionHK, r)

	r, err = ParseRegion("other")
	require.NoError(t, err)
	assert.Equal(t, RegionOther, r)

	_, err = ParseRegion("EU")
	assert.ErrorIs(t, err, ErrInvalidRegion)
}

func TestRegionFromCurrency(t *testing.T) {
	tests := map[string]Region{
		"CNY":        RegionCN,
		"usd":        RegionUS,
		"HKD":        RegionHK,
		"JPY":        RegionJP,
		"NZD":        RegionNZ,
		"TWD":        RegionTW,
		"EUR":        RegionOther,
		"":           RegionOther,
		"HKD (Cash)": RegionHK,
	}

	for input, want := range tests {
		assert.Equal(t, want, RegionFromCurrency(input), "currency %q", input)
	}
}
