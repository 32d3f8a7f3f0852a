package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidCard is returned when a card's reward configuration is malformed.
var ErrInvalidCard = errors.New("invalid card")

// RewardCard is a credit card together with its reward policy.
//
// Rates are fractions (0.015 means 1.5%). A cap of zero means the pool is
// unlimited. Base caps are tracked separately for domestic and foreign spend;
// category caps are pooled across regions.
type RewardCard struct {
	CreatedAt          time.Time
	CategoryBonusRates map[Category]float64 `validate:"omitempty,dive,keys,category,endkeys,gte=0,finite"`
	CategoryCaps       map[Category]float64 `validate:"omitempty,dive,keys,category,endkeys,gte=0,finite"`
	// ForeignRate replaces BaseRate for spend outside IssuingRegion when set and positive.
	ForeignRate    *float64 `validate:"omitempty,gte=0,finite"`
	ID             string
	BankName       string  `validate:"required,notblank"`
	Type           string
	EndNum         string  `validate:"omitempty,len=4,numeric"`
	IssuingRegion  Region  `validate:"required,region"`
	BaseRate       float64 `validate:"gte=0,finite"`
	LocalBaseCap   float64 `validate:"gte=0,finite"`
	ForeignBaseCap float64 `validate:"gte=0,finite"`
}

// DisplayName returns the bank and card type, e.g. "HSBC HK Red".
func (c *RewardCard) DisplayName() string {
	return strings.TrimSpace(c.BankName + " " + c.Type)
}

// Validate checks the card's rates, caps and region.
func (c *RewardCard) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCard, DescribeValidation(err))
	}
	return nil
}

// Clone returns a deep copy of the card.
func (c RewardCard) Clone() RewardCard {
	out := c
	if c.ForeignRate != nil {
		rate := *c.ForeignRate
		out.ForeignRate = &rate
	}
	out.CategoryBonusRates = cloneRates(c.CategoryBonusRates)
	out.CategoryCaps = cloneRates(c.CategoryCaps)
	return out
}

// Rate returns a pointer to v, for optional rate fields such as ForeignRate.
func Rate(v float64) *float64 {
	return &v
}

func cloneRates(m map[Category]float64) map[Category]float64 {
	if m == nil {
		return nil
	}
	out := make(map[Category]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
