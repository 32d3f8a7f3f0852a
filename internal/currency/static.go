package currency

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/cashback-counter/internal/common"
)

// pivot is the currency cross rates are computed through.
const pivot = "USD"

// DefaultRates is a fallback table of approximate USD rates, used when the
// configuration supplies none.
func DefaultRates() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"USD": {
			"CNY": 7.20,
			"HKD": 7.80,
			"JPY": 150.0,
			"NZD": 1.65,
			"TWD": 32.0,
		},
	}
}

// StaticSource answers rate lookups from a fixed table.
//
// A pair is resolved directly, then through the inverse pair, then through
// USD. Same-currency lookups always return 1.
type StaticSource struct {
	rates map[string]map[string]float64
}

// NewStaticSource creates a source from a table keyed rates[from][to].
// Currency codes are case-insensitive.
func NewStaticSource(rates map[string]map[string]float64) *StaticSource {
	normalized := make(map[string]map[string]float64, len(rates))
	for from, row := range rates {
		f := strings.ToUpper(from)
		if normalized[f] == nil {
			normalized[f] = make(map[string]float64, len(row))
		}
		for to, rate := range row {
			normalized[f][strings.ToUpper(to)] = rate
		}
	}
	return &StaticSource{rates: normalized}
}

// Rate returns how many units of to one unit of from buys.
func (s *StaticSource) Rate(_ context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	if r, ok := s.lookup(from, to); ok {
		return r, nil
	}
	a, okA := s.lookup(from, pivot)
	b, okB := s.lookup(pivot, to)
	if okA && okB {
		return a * b, nil
	}
	return 0, common.Permanent(fmt.Errorf("%w: %s to %s", common.ErrRateUnavailable, from, to))
}

func (s *StaticSource) lookup(from, to string) (float64, bool) {
	if from == to {
		return 1, true
	}
	if r, ok := s.rates[from][to]; ok && r > 0 {
		return r, true
	}
	if r, ok := s.rates[to][from]; ok && r > 0 {
		return 1 / r, true
	}
	return 0, false
}
