// Package storage provides the data persistence layer for cards and transactions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidYear        = errors.New("invalid year")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateYear ensures a year is plausible for a transaction date.
func validateYear(year int) error {
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	return nil
}

// validateCard validates a card before it is written.
func validateCard(card *model.RewardCard) error {
	if card == nil {
		return fmt.Errorf("%w: card", ErrNilParameter)
	}
	if strings.TrimSpace(card.ID) == "" {
		return fmt.Errorf("%w: missing ID", model.ErrInvalidCard)
	}
	return card.Validate()
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.CardID == "" {
		return fmt.Errorf("%w: missing card ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Category.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidTransaction, model.ErrUnknownCategory, txn.Category)
	}
	if !txn.SpendRegion.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidTransaction, model.ErrInvalidRegion, txn.SpendRegion)
	}
	for name, v := range map[string]float64{
		"amount":       txn.Amount,
		"spend amount": txn.SpendAmount,
		"rate":         txn.Rate,
		"reward":       txn.Reward,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidTransaction, name, v)
		}
	}
	return nil
}

// validateFilter checks a transaction query filter.
func validateFilter(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *end, *start)
	}
	return nil
}
