// Package currency converts spend amounts into a card's billing currency.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/service"
)

// DefaultCacheTTL is how long a fetched rate is reused before refetching.
const DefaultCacheTTL = 12 * time.Hour

// Config holds configuration options for the converter.
type Config struct {
	Rates    map[string]map[string]float64
	Retry    service.RetryOptions
	CacheTTL time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Rates:    DefaultRates(),
		Retry:    common.DefaultRetryOptions(),
		CacheTTL: DefaultCacheTTL,
	}
}

// Validate checks the configured rate table.
func (c Config) Validate() error {
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: currency cache TTL must not be negative", common.ErrInvalidConfig)
	}
	for from, row := range c.Rates {
		for to, rate := range row {
			if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
				return fmt.Errorf("%w: rate %s/%s must be a positive number, got %v",
					common.ErrInvalidConfig, strings.ToUpper(from), strings.ToUpper(to), rate)
			}
		}
	}
	return nil
}

// Converter wraps a RateSource with caching and retries. When the source
// fails, the most recent cached rate is used even if it has expired.
type Converter struct {
	source service.RateSource
	cache  *rateCache
	retry  service.RetryOptions
}

// NewConverter creates a converter over source.
func NewConverter(source service.RateSource, cfg Config) *Converter {
	return &Converter{
		source: source,
		cache:  newRateCache(cfg.CacheTTL),
		retry:  cfg.Retry,
	}
}

// Rate returns how many units of to one unit of from buys.
func (c *Converter) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	if rate, ok := c.cache.get(from, to); ok {
		return rate, nil
	}

	var rate float64
	err := common.WithRetry(ctx, func() error {
		r, err := c.source.Rate(ctx, from, to)
		if err != nil {
			return err
		}
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return common.Permanent(fmt.Errorf("%w: source returned %v for %s/%s", common.ErrRateUnavailable, r, from, to))
		}
		rate = r
		return nil
	}, c.retry)
	if err != nil {
		if stale, fetched, ok := c.cache.getStale(from, to); ok {
			slog.Warn("Using stale exchange rate",
				"from", from,
				"to", to,
				"rate", stale,
				"fetched", fetched,
				"error", err)
			return stale, nil
		}
		return 0, fmt.Errorf("failed to get %s/%s rate: %w", from, to, err)
	}

	c.cache.set(from, to, rate)
	slog.Debug("Fetched exchange rate", "from", from, "to", to, "rate", rate)
	return rate, nil
}

// Convert converts amount from one currency to another, rounded to cents.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return model.RoundMoney(amount * rate), nil
}

// ConvertRegion converts amount spent in spend into the billing currency of a
// card issued in issuing.
func (c *Converter) ConvertRegion(ctx context.Context, amount float64, spend, issuing model.Region) (float64, error) {
	return c.Convert(ctx, amount, spend.CurrencyCode(), issuing.CurrencyCode())
}
