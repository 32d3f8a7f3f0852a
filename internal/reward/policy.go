// Package reward computes cashback for a candidate transaction against a
// card's reward policy and the card's annual cap usage.
//
// Everything in this package is pure: callers supply the card and a snapshot
// of the card's history, and results depend on nothing else.
package reward

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
)

// ErrInvalidAmount is returned when an amount is negative, NaN or infinite.
var ErrInvalidAmount = errors.New("invalid amount")

// cappedTolerance is how far below the theoretical reward a result must be
// before it is reported as capped.
const cappedTolerance = 0.01

// Candidate is a transaction whose reward has not been computed yet.
type Candidate struct {
	Date        time.Time
	Category    model.Category
	SpendRegion model.Region
	Amount      float64
}

// Breakdown itemizes a capped reward calculation.
type Breakdown struct {
	PotentialBase    float64
	PotentialBonus   float64
	FinalBase        float64
	FinalBonus       float64
	BaseCapLimit     float64
	CategoryCapLimit float64
	UsedBase         float64
	UsedBonus        float64
	NominalRate      float64
	IsForeign        bool
}

// Total is the reward granted after caps.
func (b Breakdown) Total() float64 {
	return b.FinalBase + b.FinalBonus
}

// Theoretical is the reward that would be granted with no caps.
func (b Breakdown) Theoretical() float64 {
	return b.PotentialBase + b.PotentialBonus
}

// Capped reports whether a cap reduced the reward by more than a cent.
func (b Breakdown) Capped() bool {
	return b.Total() < b.Theoretical()-cappedTolerance
}

// ResolveRate returns the nominal reward rate for spend in category and
// spendRegion on a card issued in issuingRegion.
//
// Foreign spend uses foreignRate when it is set and positive, otherwise
// baseRate. The category bonus is added on top in either case.
func ResolveRate(
	category model.Category,
	spendRegion, issuingRegion model.Region,
	baseRate float64,
	foreignRate *float64,
	bonusRates map[model.Category]float64,
) float64 {
	isForeign := spendRegion.IsForeignTo(issuingRegion)
	return effectiveBase(isForeign, baseRate, foreignRate) + bonusRates[category]
}

// NominalRate is ResolveRate applied to a card's policy.
func NominalRate(card *model.RewardCard, category model.Category, spendRegion model.Region) float64 {
	return ResolveRate(category, spendRegion, card.IssuingRegion, card.BaseRate, card.ForeignRate, card.CategoryBonusRates)
}

// CalculateCappedReward returns the reward for candidate after the card's
// base and category caps are applied against history.
//
// history may contain transactions from other cards or other years; only the
// card's transactions in the candidate's calendar year count. A transaction
// whose ID equals excludingID is ignored, so a transaction being edited can
// be passed in history without being counted twice.
func CalculateCappedReward(card *model.RewardCard, candidate Candidate, history []model.Transaction, excludingID string) (float64, error) {
	b, err := Calculate(card, candidate, history, excludingID)
	if err != nil {
		return 0, err
	}
	return b.Total(), nil
}

// Calculate is CalculateCappedReward returning the full breakdown.
func Calculate(card *model.RewardCard, candidate Candidate, history []model.Transaction, excludingID string) (Breakdown, error) {
	if err := checkCandidate(candidate); err != nil {
		return Breakdown{}, err
	}

	isForeign := candidate.SpendRegion.IsForeignTo(card.IssuingRegion)
	base := effectiveBase(isForeign, card.BaseRate, card.ForeignRate)
	bonusRate := card.CategoryBonusRates[candidate.Category]

	b := Breakdown{
		IsForeign:        isForeign,
		NominalRate:      base + bonusRate,
		PotentialBase:    candidate.Amount * base,
		PotentialBonus:   candidate.Amount * bonusRate,
		BaseCapLimit:     baseCap(card, isForeign),
		CategoryCapLimit: card.CategoryCaps[candidate.Category],
	}

	if b.BaseCapLimit > 0 || b.CategoryCapLimit > 0 {
		ledger := BuildLedger(card, model.CapYear(candidate.Date, card.IssuingRegion), history, excludingID)
		if b.BaseCapLimit > 0 {
			b.UsedBase = ledger.UsedBase(isForeign)
		}
		if b.CategoryCapLimit > 0 {
			b.UsedBonus = ledger.UsedBonus[candidate.Category]
		}
	}

	b.FinalBase = clamp(b.PotentialBase, b.BaseCapLimit, b.UsedBase)
	b.FinalBonus = clamp(b.PotentialBonus, b.CategoryCapLimit, b.UsedBonus)

	return b, nil
}

func checkCandidate(c Candidate) error {
	if math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) || c.Amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, c.Amount)
	}
	if !c.Category.Valid() {
		return fmt.Errorf("%w: %q", model.ErrUnknownCategory, c.Category)
	}
	if !c.SpendRegion.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidRegion, c.SpendRegion)
	}
	return nil
}

func effectiveBase(isForeign bool, baseRate float64, foreignRate *float64) float64 {
	if isForeign && foreignRate != nil && *foreignRate > 0 {
		return *foreignRate
	}
	return baseRate
}

func baseCap(card *model.RewardCard, isForeign bool) float64 {
	if isForeign {
		return card.ForeignBaseCap
	}
	return card.LocalBaseCap
}

// clamp limits potential to what is left of limit after used. A limit of
// zero means unlimited.
func clamp(potential, limit, used float64) float64 {
	if limit <= 0 {
		return potential
	}
	return math.Min(potential, math.Max(0, limit-used))
}
