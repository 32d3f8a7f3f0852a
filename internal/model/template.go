package model

import (
	"fmt"
	"strings"
)

// CardTemplate is a preset reward policy for a widely held card.
// Rates are fractions, like RewardCard.
type CardTemplate struct {
	BonusRates     map[Category]float64
	CategoryCaps   map[Category]float64
	BankName       string
	Type           string
	Region         Region
	BaseRate       float64
	ForeignRate    float64
	LocalBaseCap   float64
	ForeignBaseCap float64
}

var templates = []CardTemplate{
	{BankName: "HSBC HK", Type: "Red", Region: RegionHK, BaseRate: 0.04, ForeignRate: 0.01},
	{BankName: "HSBC HK", Type: "Pulse", Region: RegionCN, BaseRate: 0.044, ForeignRate: 0.024,
		BonusRates: map[Category]float64{CategoryDining: 0.05}},
	{BankName: "HSBC HK", Type: "Premier", Region: RegionHK, BaseRate: 0.004, ForeignRate: 0.024},
	{BankName: "HSBC HK", Type: "Visa Signature", Region: RegionHK, BaseRate: 0.016, ForeignRate: 0.036},
	{BankName: "HSBC US", Type: "Elite", Region: RegionUS, BaseRate: 0.0132, ForeignRate: 0.0132,
		BonusRates: map[Category]float64{CategoryTravel: 0.0528, CategoryDining: 0.0132}},
	{BankName: "ICBC Asia", Type: "Visa Signature", Region: RegionHK, BaseRate: 0.015, ForeignRate: 0.015,
		BonusRates: map[Category]float64{CategoryGrocery: 0.15}},
	{BankName: "ICBC Asia", Type: "粵港澳灣區信用卡", Region: RegionCN, BaseRate: 0.015, ForeignRate: 0.015,
		BonusRates: map[Category]float64{CategoryGrocery: 0.15}},
	{BankName: "信銀國際", Type: "大灣區雙幣信用卡", Region: RegionCN, BaseRate: 0.04, ForeignRate: 0.004,
		BonusRates: map[Category]float64{CategoryOther: 0.06}},
	{BankName: "农业银行", Type: "大学生青春卡", Region: RegionCN, BaseRate: 0.001, ForeignRate: 0.04},
	{BankName: "农业银行", Type: "Visa精粹白金卡", Region: RegionCN, BaseRate: 0.001, ForeignRate: 0.04},
}

// Templates returns the built-in card templates.
func Templates() []CardTemplate {
	out := make([]CardTemplate, len(templates))
	copy(out, templates)
	return out
}

// Name returns the template's lookup name, "Bank Type".
func (t CardTemplate) Name() string {
	return t.BankName + " " + t.Type
}

// FindTemplate looks up a template by name, case-insensitively.
func FindTemplate(name string) (CardTemplate, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, t := range templates {
		if strings.ToLower(t.Name()) == want {
			return t, nil
		}
	}
	return CardTemplate{}, fmt.Errorf("no card template named %q", name)
}

// NewCard builds a RewardCard from the template. The caller assigns ID and EndNum.
func (t CardTemplate) NewCard() RewardCard {
	card := RewardCard{
		BankName:           t.BankName,
		Type:               t.Type,
		IssuingRegion:      t.Region,
		BaseRate:           t.BaseRate,
		LocalBaseCap:       t.LocalBaseCap,
		ForeignBaseCap:     t.ForeignBaseCap,
		CategoryBonusRates: cloneRates(t.BonusRates),
		CategoryCaps:       cloneRates(t.CategoryCaps),
	}
	if t.ForeignRate > 0 {
		card.ForeignRate = Rate(t.ForeignRate)
	}
	return card
}
