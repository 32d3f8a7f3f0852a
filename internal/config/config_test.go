package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("CASHBACK_TEST_DIR", "/tmp/cashback")

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "~", want: home},
		{input: "~/data/db.sqlite", want: filepath.Join(home, "data/db.sqlite")},
		{input: "$CASHBACK_TEST_DIR/db.sqlite", want: "/tmp/cashback/db.sqlite"},
		{input: "/abs/path.db", want: "/abs/path.db"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.input), "input %q", tt.input)
	}
}

func TestLoadCurrencyConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		cfg, err := LoadCurrencyConfig()
		require.NoError(t, err)
		assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
		assert.Contains(t, cfg.Rates, "USD")
	})

	t.Run("overrides from config", func(t *testing.T) {
		viper.Reset()
		viper.Set("currency.cache_ttl", "30m")
		viper.Set("currency.rates", map[string]any{
			"hkd": map[string]any{"cny": 0.92},
		})

		cfg, err := LoadCurrencyConfig()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
		assert.InDelta(t, 0.92, cfg.Rates["HKD"]["CNY"], 1e-12)
		assert.NotContains(t, cfg.Rates, "USD")
	})

	t.Run("rejects non-positive rate", func(t *testing.T) {
		viper.Reset()
		viper.Set("currency.rates", map[string]any{
			"usd": map[string]any{"hkd": 0},
		})

		_, err := LoadCurrencyConfig()
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}

func TestDatabasePath(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	viper.Set("database.path", "/var/lib/cashback.db")
	assert.Equal(t, "/var/lib/cashback.db", DatabasePath())
}

func TestLoadCategoryRules(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("built-in rules by default", func(t *testing.T) {
		viper.Reset()
		matcher, err := LoadCategoryRules()
		require.NoError(t, err)
		rule, ok := matcher.Match("NETFLIX.COM", 78)
		require.True(t, ok)
		assert.Equal(t, model.CategoryDigital, rule.Category)
	})

	t.Run("configured rules win", func(t *testing.T) {
		viper.Reset()
		viper.Set("categories.rules", []map[string]any{
			{"merchant": "netflix", "regex": true, "category": "other"},
			{"name": "big shops", "merchant": "", "category": "grocery", "amount_condition": "gt", "amount_value": 1000},
		})

		matcher, err := LoadCategoryRules()
		require.NoError(t, err)

		rule, ok := matcher.Match("NETFLIX.COM", 78)
		require.True(t, ok)
		assert.Equal(t, model.CategoryOther, rule.Category)
		assert.Equal(t, "categories.rules[0]", rule.Name)

		rule, ok = matcher.Match("Somewhere", 1500)
		require.True(t, ok)
		assert.Equal(t, "big shops", rule.Name)
	})

	t.Run("built-in rules can be disabled", func(t *testing.T) {
		viper.Reset()
		viper.Set("categories.builtin", false)
		matcher, err := LoadCategoryRules()
		require.NoError(t, err)
		assert.Equal(t, 0, matcher.Len())
	})

	t.Run("invalid rule", func(t *testing.T) {
		viper.Reset()
		viper.Set("categories.rules", []map[string]any{{"merchant": "x", "category": "fuel"}})
		_, err := LoadCategoryRules()
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}
