package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when a category is outside the fixed set.
var ErrUnknownCategory = errors.New("unknown category")

// Category is a spending category that reward bonuses and caps are keyed on.
// The set is closed; new categories cannot be added at runtime.
type Category string

// Supported spending categories.
const (
	CategoryDining  Category = "dining"
	CategoryGrocery Category = "grocery"
	CategoryTravel  Category = "travel"
	CategoryDigital Category = "digital"
	CategoryOther   Category = "other"
)

var allCategories = []Category{
	CategoryDining,
	CategoryGrocery,
	CategoryTravel,
	CategoryDigital,
	CategoryOther,
}

// AllCategories returns every category in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDining, CategoryGrocery, CategoryTravel, CategoryDigital, CategoryOther:
		return true
	default:
		return false
	}
}

// DisplayName returns a human readable label.
func (c Category) DisplayName() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// CategoryFromSIC maps a merchant SIC/MCC code to a spending category.
// Codes without a specific mapping fall back to CategoryOther.
func CategoryFromSIC(code int) Category {
	switch {
	case code == 5812 || code == 5813 || code == 5814:
		return CategoryDining
	case code == 5411 || code == 5422 || code == 5441 || code == 5451 || code == 5499:
		return CategoryGrocery
	case code >= 3000 && code <= 3299, // airlines
		code == 4111, code == 4121, code == 4411, code == 4511,
		code == 4722, code == 7011, code == 7512:
		return CategoryTravel
	case code == 4816, code == 4899, code == 5734,
		code >= 5815 && code <= 5818:
		return CategoryDigital
	default:
		return CategoryOther
	}
}
