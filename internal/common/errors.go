// Package common holds the sentinel errors, logging setup and retry helper
// shared by the cashback packages.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every lookup of a missing card, transaction
	// or backup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEntry reports a second card or transaction with a taken ID,
	// or a statement line imported twice.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrDatabaseCorrupted reports a database or backup that fails SQLite's
	// integrity check.
	ErrDatabaseCorrupted = errors.New("database corrupted")

	ErrRateUnavailable = errors.New("exchange rate unavailable")
	ErrNoTransactions  = errors.New("no transactions to import")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// UserError carries a short message for the terminal alongside the
// underlying cause.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError wraps err with a message meant for the person at the CLI.
func NewUserError(userMessage string, err error) error {
	return &UserError{UserMessage: userMessage, Err: err}
}
