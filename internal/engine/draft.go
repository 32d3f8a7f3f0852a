package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/reward"
)

// ErrInvalidDraft is returned when a draft is missing required fields.
var ErrInvalidDraft = errors.New("invalid transaction draft")

// Draft is a transaction as entered by the user or read from a statement,
// before its billing amount and reward are resolved.
type Draft struct {
	Date time.Time `validate:"required"`
	// BillingAmount is the amount charged in the card's currency. When nil,
	// SpendAmount is converted from the spend region's currency.
	BillingAmount *float64
	CardID        string                  `validate:"required,notblank"`
	Merchant      string                  `validate:"required,notblank"`
	Category      model.Category          `validate:"required,category"`
	SpendRegion   model.Region            `validate:"required,region"`
	Source        model.TransactionSource `validate:"omitempty,oneof=manual ofx"`
	ExternalID    string
	SpendAmount   float64
}

// Validate checks the draft's fields. Amounts that are negative or not
// finite are reported as reward.ErrInvalidAmount.
func (d *Draft) Validate() error {
	if err := checkAmount(d.SpendAmount); err != nil {
		return err
	}
	if d.BillingAmount != nil {
		if err := checkAmount(*d.BillingAmount); err != nil {
			return err
		}
	}
	if err := model.ValidateStruct(d); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDraft, model.DescribeValidation(err))
	}
	return nil
}

// Billing returns a pointer to amount, for Draft.BillingAmount.
func Billing(amount float64) *float64 {
	return &amount
}

func checkAmount(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", reward.ErrInvalidAmount, v)
	}
	return nil
}

// rewardFieldsChanged reports whether an edit touches anything the reward
// depends on.
func rewardFieldsChanged(old *model.Transaction, next *model.Transaction) bool {
	return old.CardID != next.CardID ||
		old.Category != next.Category ||
		old.SpendRegion != next.SpendRegion ||
		!old.Date.Equal(next.Date) ||
		math.Abs(old.Amount-next.Amount) >= 0.005
}
