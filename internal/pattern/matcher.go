package pattern

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/cashback-counter/internal/engine"
	"github.com/Veraticus/cashback-counter/internal/model"
)

// Matcher evaluates merchants against a fixed set of rules.
type Matcher struct {
	rules []compiledRule
}

type compiledRule struct {
	re *regexp.Regexp
	Rule
}

// NewMatcher validates and compiles rules. Rules are tried by descending
// priority, then in the order given.
func NewMatcher(rules []Rule) (*Matcher, error) {
	m := &Matcher{rules: make([]compiledRule, 0, len(rules))}

	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		c := compiledRule{Rule: rule}
		if rule.IsRegex && rule.MerchantPattern != "" {
			c.re = regexp.MustCompile("(?i)" + rule.MerchantPattern)
		}
		m.rules = append(m.rules, c)
	}

	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].Priority > m.rules[j].Priority
	})

	return m, nil
}

// Match returns the highest priority rule matching merchant and amount.
func (m *Matcher) Match(merchant string, amount float64) (Rule, bool) {
	for _, rule := range m.rules {
		if rule.matchesMerchant(merchant) && rule.matchesAmount(amount) {
			return rule.Rule, true
		}
	}
	return Rule{}, false
}

// Apply sets the category of every draft still in CategoryOther that a rule
// matches, and returns how many drafts changed. Amount conditions are checked
// against the billed amount when known, otherwise the spend amount.
func (m *Matcher) Apply(drafts []engine.Draft) int {
	changed := 0
	for i := range drafts {
		d := &drafts[i]
		if d.Category != model.CategoryOther {
			continue
		}
		amount := d.SpendAmount
		if d.BillingAmount != nil {
			amount = *d.BillingAmount
		}
		if rule, ok := m.Match(d.Merchant, amount); ok && rule.Category != d.Category {
			d.Category = rule.Category
			changed++
		}
	}
	return changed
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

func (r compiledRule) matchesMerchant(merchant string) bool {
	if r.MerchantPattern == "" {
		return true
	}
	if r.re != nil {
		return r.re.MatchString(merchant)
	}
	return strings.EqualFold(strings.TrimSpace(merchant), strings.TrimSpace(r.MerchantPattern))
}

func (r compiledRule) matchesAmount(amount float64) bool {
	switch r.AmountCondition {
	case "", AmountAny:
		return true
	case AmountLessThan:
		return amount < *r.AmountValue
	case AmountLessEqual:
		return amount <= *r.AmountValue
	case AmountEqual:
		return amount == *r.AmountValue
	case AmountGreaterEqual:
		return amount >= *r.AmountValue
	case AmountGreaterThan:
		return amount > *r.AmountValue
	case AmountRange:
		if r.AmountMin != nil && amount < *r.AmountMin {
			return false
		}
		if r.AmountMax != nil && amount > *r.AmountMax {
			return false
		}
		return true
	}
	return false
}
