// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
// Zero values mean "no constraint".
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	CardID    string
	Category  model.Category
	Year      int
	Limit     int
	Offset    int
}

// HistoryProvider supplies the transactions a card has recorded in a
// calendar year, ordered by date.
type HistoryProvider interface {
	GetCardHistory(ctx context.Context, cardID string, year int) ([]model.Transaction, error)
}

// CardRepository stores reward cards.
type CardRepository interface {
	CreateCard(ctx context.Context, card *model.RewardCard) error
	GetCard(ctx context.Context, id string) (*model.RewardCard, error)
	GetCards(ctx context.Context) ([]model.RewardCard, error)
	UpdateCard(ctx context.Context, card *model.RewardCard) error
	// DeleteCard removes the card and every transaction recorded on it.
	DeleteCard(ctx context.Context, id string) error
}

// TransactionStore stores transactions with their reward snapshots.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	// ReplaceTransaction overwrites an existing transaction, keeping its ID.
	ReplaceTransaction(ctx context.Context, txn *model.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	GetTransactionByExternalID(ctx context.Context, cardID, externalID string) (*model.Transaction, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	CardRepository
	TransactionStore
	HistoryProvider

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RateSource looks up how many units of currency "to" one unit of "from" buys.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// CategorySummary contains aggregated spend and cashback for a category.
type CategorySummary struct {
	Count    int
	Amount   float64
	Cashback float64
}
