package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySource returns queued results, then keeps returning the last one.
type flakySource struct {
	errs  []error
	rate  float64
	calls int
}

func (f *flakySource) Rate(_ context.Context, _, _ string) (float64, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		if len(f.errs) > 1 {
			f.errs = f.errs[1:]
		}
		if err != nil {
			return 0, err
		}
	}
	return f.rate, nil
}

func testConfig() Config {
	return Config{
		CacheTTL: time.Hour,
		Retry: service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
		},
	}
}

func TestStaticSource_Rate(t *testing.T) {
	src := NewStaticSource(map[string]map[string]float64{
		"usd": {"hkd": 7.8, "cny": 7.2},
	})
	ctx := context.Background()

	tests := []struct {
		name string
		from string
		to   string
		want float64
	}{
		{name: "same currency", from: "JPY", to: "jpy", want: 1},
		{name: "direct", from: "USD", to: "HKD", want: 7.8},
		{name: "inverse", from: "HKD", to: "USD", want: 1 / 7.8},
		{name: "cross through USD", from: "HKD", to: "CNY", want: 7.2 / 7.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.Rate(ctx, tt.from, tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}

	t.Run("unknown pair", func(t *testing.T) {
		_, err := src.Rate(ctx, "EUR", "GBP")
		assert.ErrorIs(t, err, common.ErrRateUnavailable)
	})
}

func TestConverter_CachesRates(t *testing.T) {
	src := &flakySource{rate: 7.8}
	conv := NewConverter(src, testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := conv.Convert(ctx, 10, "usd", "hkd")
		require.NoError(t, err)
		assert.InDelta(t, 78.0, got, 1e-9)
	}
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 1, conv.cache.size())
}

func TestConverter_RefetchesAfterTTL(t *testing.T) {
	src := &flakySource{rate: 7.8}
	conv := NewConverter(src, testConfig())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	conv.cache.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := conv.Rate(ctx, "USD", "HKD")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	src.rate = 7.9
	got, err := conv.Rate(ctx, "USD", "HKD")
	require.NoError(t, err)
	assert.InDelta(t, 7.9, got, 1e-12)
	assert.Equal(t, 2, src.calls)
}

func TestConverter_FallsBackToStaleRate(t *testing.T) {
	src := &flakySource{rate: 7.8}
	conv := NewConverter(src, testConfig())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	conv.cache.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := conv.Rate(ctx, "USD", "HKD")
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)
	src.errs = []error{errors.New("network down")}
	got, err := conv.Rate(ctx, "USD", "HKD")
	require.NoError(t, err)
	assert.InDelta(t, 7.8, got, 1e-12)
}

func TestConverter_RetriesTransientFailures(t *testing.T) {
	src := &flakySource{rate: 150, errs: []error{errors.New("timeout"), nil}}
	conv := NewConverter(src, testConfig())

	got, err := conv.Rate(context.Background(), "USD", "JPY")
	require.NoError(t, err)
	assert.InDelta(t, 150.0, got, 1e-12)
	assert.Equal(t, 2, src.calls)
}

func TestConverter_NoRateAvailable(t *testing.T) {
	conv := NewConverter(NewStaticSource(nil), testConfig())

	_, err := conv.Convert(context.Background(), 10, "EUR", "HKD")
	assert.ErrorIs(t, err, common.ErrRateUnavailable)
}

func TestConverter_ConvertRegion(t *testing.T) {
	conv := NewConverter(NewStaticSource(DefaultRates()), testConfig())
	ctx := context.Background()

	got, err := conv.ConvertRegion(ctx, 100, model.RegionUS, model.RegionHK)
	require.NoError(t, err)
	assert.InDelta(t, 780.0, got, 1e-9)

	got, err = conv.ConvertRegion(ctx, 100, model.RegionHK, model.RegionHK)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Rates = map[string]map[string]float64{"USD": {"HKD": -1}}
	assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.CacheTTL = -time.Second
	assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidConfig)
}
