package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/cashback-counter/internal/currency"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// LoadCurrencyConfig loads exchange-rate settings from Viper.
//
// currency.cache_ttl overrides the cache lifetime and currency.rates, a map of
// base currency to quote currency to rate, replaces the built-in rate table.
func LoadCurrencyConfig() (currency.Config, error) {
	cfg := currency.DefaultConfig()

	if viper.IsSet("currency.cache_ttl") {
		cfg.CacheTTL = viper.GetDuration("currency.cache_ttl")
	}

	if raw := viper.GetStringMap("currency.rates"); len(raw) > 0 {
		rates := make(map[string]map[string]float64, len(raw))
		for from, v := range raw {
			row, err := cast.ToStringMapE(v)
			if err != nil {
				return cfg, fmt.Errorf("currency.rates.%s: %w", from, err)
			}
			quotes := make(map[string]float64, len(row))
			for to, r := range row {
				rate, err := cast.ToFloat64E(r)
				if err != nil {
					return cfg, fmt.Errorf("currency.rates.%s.%s: %w", from, to, err)
				}
				quotes[strings.ToUpper(to)] = rate
			}
			rates[strings.ToUpper(from)] = quotes
		}
		cfg.Rates = rates
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
