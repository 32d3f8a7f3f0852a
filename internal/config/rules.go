package config

import (
	"fmt"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/pattern"
	"github.com/spf13/viper"
)

// LoadCategoryRules builds the merchant matcher used to categorize imported
// transactions. Rules under categories.rules are tried before the built-in
// ones, which categories.builtin=false turns off.
func LoadCategoryRules() (*pattern.Matcher, error) {
	var rules []pattern.Rule
	if err := viper.UnmarshalKey("categories.rules", &rules); err != nil {
		return nil, fmt.Errorf("%w: categories.rules: %w", common.ErrInvalidConfig, err)
	}

	// Configured rules outrank every built-in rule of the same priority.
	for i := range rules {
		rules[i].Priority += 1000
		if rules[i].Name == "" {
			rules[i].Name = fmt.Sprintf("categories.rules[%d]", i)
		}
	}

	viper.SetDefault("categories.builtin", true)
	if viper.GetBool("categories.builtin") {
		rules = append(rules, pattern.DefaultRules()...)
	}

	matcher, err := pattern.NewMatcher(rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return matcher, nil
}
