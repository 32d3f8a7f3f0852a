package model

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds an amount to cents, half away from zero.
// Non-finite input is returned unchanged.
func RoundMoney(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatMoney renders an amount with the region's currency symbol.
func FormatMoney(r Region, v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-" + r.CurrencySymbol() + d.Neg().StringFixed(2)
	}
	return r.CurrencySymbol() + d.StringFixed(2)
}

// FormatPercent renders a fractional rate as a percentage, e.g. 0.015 as "1.5%".
func FormatPercent(rate float64) string {
	return decimal.NewFromFloat(rate).Mul(decimal.NewFromInt(100)).Round(2).String() + "%"
}

// PercentToRate converts a percentage such as 1.5 into the fraction 0.015.
func PercentToRate(percent float64) float64 {
	f, _ := decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100)).Float64()
	return f
}
