package reward

import (
	"math"

	"github.com/Veraticus/cashback-counter/internal/model"
)

// Ledger is a card's cap usage for one calendar year, derived from its
// transaction history.
//
// Usage is valued at the card's current rates, not the rates recorded on each
// transaction, so a policy change re-prices the whole year's usage.
type Ledger struct {
	UsedBonus       map[model.Category]float64
	CardID          string
	Year            int
	Transactions    int
	UsedLocalBase   float64
	UsedForeignBase float64
}

// BuildLedger aggregates history into cap usage for card in year, skipping
// transactions on other cards, in other years, or with ID excludingID. Years
// are counted in the card's issuing region.
// Transactions with a negative or non-finite amount contribute nothing.
func BuildLedger(card *model.RewardCard, year int, history []model.Transaction, excludingID string) Ledger {
	l := Ledger{
		CardID:    card.ID,
		Year:      year,
		UsedBonus: make(map[model.Category]float64),
	}

	for i := range history {
		t := &history[i]
		if t.CardID != card.ID || t.Year(card.IssuingRegion) != year {
			continue
		}
		if excludingID != "" && t.ID == excludingID {
			continue
		}
		if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount < 0 {
			continue
		}

		l.Transactions++
		isForeign := t.SpendRegion.IsForeignTo(card.IssuingRegion)
		base := t.Amount * effectiveBase(isForeign, card.BaseRate, card.ForeignRate)
		if isForeign {
			l.UsedForeignBase += base
		} else {
			l.UsedLocalBase += base
		}

		if rate := card.CategoryBonusRates[t.Category]; rate > 0 {
			l.UsedBonus[t.Category] += t.Amount * rate
		}
	}

	return l
}

// UsedBase returns the base-rate reward already earned in the domestic or
// foreign pool.
func (l Ledger) UsedBase(isForeign bool) float64 {
	if isForeign {
		return l.UsedForeignBase
	}
	return l.UsedLocalBase
}

// RemainingBase returns what is left of the card's base cap for the pool, and
// false when the pool is unlimited.
func (l Ledger) RemainingBase(card *model.RewardCard, isForeign bool) (float64, bool) {
	limit := baseCap(card, isForeign)
	if limit <= 0 {
		return 0, false
	}
	return math.Max(0, limit-l.UsedBase(isForeign)), true
}

// RemainingBonus returns what is left of the category cap, and false when the
// category is uncapped.
func (l Ledger) RemainingBonus(card *model.RewardCard, category model.Category) (float64, bool) {
	limit := card.CategoryCaps[category]
	if limit <= 0 {
		return 0, false
	}
	return math.Max(0, limit-l.UsedBonus[category]), true
}
