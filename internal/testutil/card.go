package testutil

import (
	"github.com/Veraticus/cashback-counter/internal/model"
)

// CardBuilder builds reward cards for tests with a fluent API. Cards start
// as a Hong Kong issued card with no rewards.
type CardBuilder struct {
	card model.RewardCard
}

// NewCard starts a card with the given ID.
func NewCard(id string) *CardBuilder {
	return &CardBuilder{card: model.RewardCard{
		ID:            id,
		BankName:      "Test Bank",
		Type:          id,
		IssuingRegion: model.RegionHK,
	}}
}

// Named sets the bank and card type.
func (b *CardBuilder) Named(bank, cardType string) *CardBuilder {
	b.card.BankName, b.card.Type = bank, cardType
	return b
}

// Issued sets the issuing region.
func (b *CardBuilder) Issued(region model.Region) *CardBuilder {
	b.card.IssuingRegion = region
	return b
}

// Base sets the base rate.
func (b *CardBuilder) Base(rate float64) *CardBuilder {
	b.card.BaseRate = rate
	return b
}

// Foreign sets the foreign base rate.
func (b *CardBuilder) Foreign(rate float64) *CardBuilder {
	b.card.ForeignRate = model.Rate(rate)
	return b
}

// Caps sets the local and foreign base caps.
func (b *CardBuilder) Caps(local, foreign float64) *CardBuilder {
	b.card.LocalBaseCap, b.card.ForeignBaseCap = local, foreign
	return b
}

// Bonus adds a category bonus with an optional cap (0 for none).
func (b *CardBuilder) Bonus(cat model.Category, rate, limit float64) *CardBuilder {
	if b.card.CategoryBonusRates == nil {
		b.card.CategoryBonusRates = make(map[model.Category]float64)
	}
	b.card.CategoryBonusRates[cat] = rate
	if limit > 0 {
		if b.card.CategoryCaps == nil {
			b.card.CategoryCaps = make(map[model.Category]float64)
		}
		b.card.CategoryCaps[cat] = limit
	}
	return b
}

// Build returns a copy of the card.
func (b *CardBuilder) Build() *model.RewardCard {
	card := b.card.Clone()
	return &card
}
