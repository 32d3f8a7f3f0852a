// Package pattern assigns spending categories to imported transactions by
// matching merchant names against rules.
package pattern

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Veraticus/cashback-counter/internal/model"
)

// ErrInvalidRule is returned for rules that can never match or name an
// unknown category.
var ErrInvalidRule = errors.New("invalid pattern rule")

// Amount conditions a rule can place on the billed amount.
const (
	AmountAny          = "any"
	AmountLessThan     = "lt"
	AmountLessEqual    = "le"
	AmountEqual        = "eq"
	AmountGreaterEqual = "ge"
	AmountGreaterThan  = "gt"
	AmountRange        = "range"
)

// Rule maps merchants to a category. An empty MerchantPattern matches every
// merchant. Matching is case-insensitive; plain patterns match the whole
// merchant name and regex patterns match anywhere in it.
type Rule struct {
	AmountValue     *float64       `mapstructure:"amount_value"`
	AmountMin       *float64       `mapstructure:"amount_min"`
	AmountMax       *float64       `mapstructure:"amount_max"`
	Name            string         `mapstructure:"name"`
	MerchantPattern string         `mapstructure:"merchant"`
	AmountCondition string         `mapstructure:"amount_condition"`
	Category        model.Category `mapstructure:"category"`
	Priority        int            `mapstructure:"priority"`
	IsRegex         bool           `mapstructure:"regex"`
}

// Validate checks that the rule names a known category, compiles, and has
// the bounds its amount condition needs.
func (r Rule) Validate() error {
	if !r.Category.Valid() {
		return fmt.Errorf("%w %q: %w: %q", ErrInvalidRule, r.Name, model.ErrUnknownCategory, r.Category)
	}
	if r.IsRegex {
		if _, err := regexp.Compile(r.MerchantPattern); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidRule, r.Name, err)
		}
	}

	switch r.AmountCondition {
	case "", AmountAny:
	case AmountLessThan, AmountLessEqual, AmountEqual, AmountGreaterEqual, AmountGreaterThan:
		if r.AmountValue == nil {
			return fmt.Errorf("%w %q: amount condition %s needs amount_value", ErrInvalidRule, r.Name, r.AmountCondition)
		}
	case AmountRange:
		if r.AmountMin == nil && r.AmountMax == nil {
			return fmt.Errorf("%w %q: range needs amount_min or amount_max", ErrInvalidRule, r.Name)
		}
		if r.AmountMin != nil && r.AmountMax != nil && *r.AmountMin > *r.AmountMax {
			return fmt.Errorf("%w %q: amount_min is above amount_max", ErrInvalidRule, r.Name)
		}
	default:
		return fmt.Errorf("%w %q: unknown amount condition %q", ErrInvalidRule, r.Name, r.AmountCondition)
	}
	return nil
}
