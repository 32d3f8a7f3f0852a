package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/cashback-counter/internal/config"
	"github.com/Veraticus/cashback-counter/internal/currency"
	"github.com/Veraticus/cashback-counter/internal/engine"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/storage"
)

const dateLayout = "2006-01-02"

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newEngine builds a reward engine over store, converting foreign spend with
// the configured exchange rates.
func newEngine(store *storage.SQLiteStorage) (*engine.RewardEngine, error) {
	cfg, err := config.LoadCurrencyConfig()
	if err != nil {
		return nil, err
	}
	converter := currency.NewConverter(currency.NewStaticSource(cfg.Rates), cfg)
	return engine.New(store, converter), nil
}

// parseDate reads a YYYY-MM-DD date as midnight on the card's own calendar.
func parseDate(s string, issuing model.Region) (time.Time, error) {
	loc := issuing.Location()
	if s == "" || s == "today" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// resolveYear returns year, or the current year when it is zero.
func resolveYear(year int) int {
	if year == 0 {
		return time.Now().Year()
	}
	return year
}

// parseCategoryValues parses "category=value" pairs such as "dining=5".
// Percent values are converted to rates.
func parseCategoryValues(pairs []string, percent bool) (map[model.Category]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[model.Category]float64, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid value %q, expected category=number", pair)
		}
		cat, err := model.ParseCategory(key)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number in %q: %w", pair, err)
		}
		if percent {
			v = model.PercentToRate(v)
		}
		out[cat] = v
	}
	return out, nil
}

// formatCategoryValues renders a category map as sorted "dining 5%" pairs.
func formatCategoryValues(values map[model.Category]float64, format func(float64) string) string {
	if len(values) == 0 {
		return "-"
	}
	cats := make([]string, 0, len(values))
	for cat := range values {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)

	parts := make([]string, len(cats))
	for i, cat := range cats {
		parts[i] = cat + " " + format(values[model.Category(cat)])
	}
	return strings.Join(parts, ", ")
}

func formatCap(region model.Region, limit float64) string {
	if limit <= 0 {
		return "unlimited"
	}
	return model.FormatMoney(region, limit)
}
