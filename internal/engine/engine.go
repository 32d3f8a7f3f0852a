// Package engine records transactions against reward cards, resolving each
// transaction's billing amount and capped cashback before it is stored.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/reward"
	"github.com/Veraticus/cashback-counter/internal/service"
	"github.com/google/uuid"
)

// RewardEngine orchestrates reward calculation against storage.
type RewardEngine struct {
	storage   service.Storage
	converter Converter
	locks     *cardLocks
	newID     func() string
	logEvery  int
}

// Config holds configuration options for the reward engine.
type Config struct {
	// NewID generates transaction IDs.
	NewID func() string
	// ImportLogInterval is how many imported drafts pass between progress logs.
	ImportLogInterval int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		NewID:             uuid.NewString,
		ImportLogInterval: 50,
	}
}

// New creates a reward engine with the default configuration. A nil
// converter bills foreign spend at face value.
func New(storage service.Storage, converter Converter) *RewardEngine {
	return NewWithConfig(storage, converter, DefaultConfig())
}

// NewWithConfig creates a reward engine with custom configuration.
func NewWithConfig(storage service.Storage, converter Converter, config Config) *RewardEngine {
	if converter == nil {
		converter = identityConverter{}
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
	if config.ImportLogInterval <= 0 {
		config.ImportLogInterval = DefaultConfig().ImportLogInterval
	}
	return &RewardEngine{
		storage:   storage,
		converter: converter,
		locks:     newCardLocks(),
		newID:     config.NewID,
		logEvery:  config.ImportLogInterval,
	}
}

// Quote is the reward a draft would earn if it were recorded now.
type Quote struct {
	Card        model.RewardCard
	Breakdown   reward.Breakdown
	Amount      float64 // billing amount the reward is computed on
	Rate        float64 // nominal rate before caps
	Reward      float64
	Theoretical float64
	Capped      bool
}

// Preview computes the reward for a draft without writing anything. Pass the
// ID of the transaction being edited as excludingID so its current reward is
// not counted against the caps; pass "" for a new transaction.
func (e *RewardEngine) Preview(ctx context.Context, draft Draft, excludingID string) (Quote, error) {
	card, amount, err := e.resolve(ctx, draft)
	if err != nil {
		return Quote{}, err
	}
	return e.quote(ctx, card, draft, amount, excludingID)
}

// Record stores a new transaction with its reward snapshot.
func (e *RewardEngine) Record(ctx context.Context, draft Draft) (*model.Transaction, error) {
	card, amount, err := e.resolve(ctx, draft)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(card.ID)
	defer unlock()

	return e.record(ctx, card, draft, amount)
}

// Edit replaces transaction id with draft. The reward is recomputed as if the
// old transaction had never been recorded. If nothing the reward depends on
// changed, the stored snapshot is kept.
func (e *RewardEngine) Edit(ctx context.Context, id string, draft Draft) (*model.Transaction, error) {
	existing, err := e.storage.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	card, amount, err := e.resolve(ctx, draft)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(existing.CardID, card.ID)
	defer unlock()

	next := buildTransaction(id, draft, amount)
	next.CreatedAt = existing.CreatedAt
	next.Source = existing.Source
	if next.ExternalID == "" {
		next.ExternalID = existing.ExternalID
	}

	recomputed := rewardFieldsChanged(existing, next)
	if recomputed {
		q, err := e.quote(ctx, card, draft, amount, id)
		if err != nil {
			return nil, err
		}
		next.Rate = q.Rate
		next.Reward = q.Reward
	} else {
		next.Rate = existing.Rate
		next.Reward = existing.Reward
	}

	if err := e.storage.ReplaceTransaction(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	slog.Info("Edited transaction",
		"id", id,
		"card", card.ID,
		"reward", next.Reward,
		"recomputed", recomputed)
	return next, nil
}

// Delete removes a transaction. Other transactions keep their rewards.
func (e *RewardEngine) Delete(ctx context.Context, id string) error {
	existing, err := e.storage.GetTransactionByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	unlock := e.locks.lock(existing.CardID)
	defer unlock()

	if err := e.storage.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	slog.Info("Deleted transaction", "id", id, "card", existing.CardID)
	return nil
}

// resolve validates the draft, loads its card and settles the billing amount.
func (e *RewardEngine) resolve(ctx context.Context, draft Draft) (*model.RewardCard, float64, error) {
	if err := draft.Validate(); err != nil {
		return nil, 0, err
	}

	card, err := e.storage.GetCard(ctx, draft.CardID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load card: %w", err)
	}

	amount, err := e.billingAmount(ctx, card, draft)
	if err != nil {
		return nil, 0, err
	}
	return card, amount, nil
}

// billingAmount returns the amount charged to card for draft, in cents.
func (e *RewardEngine) billingAmount(ctx context.Context, card *model.RewardCard, draft Draft) (float64, error) {
	if draft.BillingAmount != nil {
		return model.RoundMoney(*draft.BillingAmount), nil
	}
	if !draft.SpendRegion.IsForeignTo(card.IssuingRegion) {
		return model.RoundMoney(draft.SpendAmount), nil
	}

	amount, err := e.converter.ConvertRegion(ctx, draft.SpendAmount, draft.SpendRegion, card.IssuingRegion)
	if err != nil {
		return 0, fmt.Errorf("failed to convert %s spend to %s billing: %w",
			draft.SpendRegion.CurrencyCode(), card.IssuingRegion.CurrencyCode(), err)
	}
	return amount, nil
}

func (e *RewardEngine) quote(ctx context.Context, card *model.RewardCard, draft Draft, amount float64, excludingID string) (Quote, error) {
	candidate := reward.Candidate{
		Date:        draft.Date,
		Category:    draft.Category,
		SpendRegion: draft.SpendRegion,
		Amount:      amount,
	}

	history, err := e.storage.GetCardHistory(ctx, card.ID, model.CapYear(draft.Date, card.IssuingRegion))
	if err != nil {
		return Quote{}, fmt.Errorf("failed to load card history: %w", err)
	}

	b, err := reward.Calculate(card, candidate, history, excludingID)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Card:        *card,
		Breakdown:   b,
		Amount:      amount,
		Rate:        b.NominalRate,
		Reward:      model.RoundMoney(b.Total()),
		Theoretical: model.RoundMoney(b.Theoretical()),
		Capped:      b.Capped(),
	}, nil
}

// record computes and stores a new transaction. The caller holds the card lock.
func (e *RewardEngine) record(ctx context.Context, card *model.RewardCard, draft Draft, amount float64) (*model.Transaction, error) {
	q, err := e.quote(ctx, card, draft, amount, "")
	if err != nil {
		return nil, err
	}

	txn := buildTransaction(e.newID(), draft, amount)
	txn.Rate = q.Rate
	txn.Reward = q.Reward

	if err := e.storage.SaveTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}

	slog.Debug("Recorded transaction",
		"id", txn.ID,
		"card", card.ID,
		"amount", txn.Amount,
		"reward", txn.Reward,
		"capped", q.Capped)
	return txn, nil
}

func buildTransaction(id string, draft Draft, amount float64) *model.Transaction {
	source := draft.Source
	if source == "" {
		source = model.SourceManual
	}
	return &model.Transaction{
		ID:          id,
		CardID:      draft.CardID,
		Date:        draft.Date.UTC(),
		Merchant:    draft.Merchant,
		Category:    draft.Category,
		SpendRegion: draft.SpendRegion,
		Source:      source,
		ExternalID:  draft.ExternalID,
		Amount:      amount,
		SpendAmount: draft.SpendAmount,
		CreatedAt:   time.Now().UTC(),
	}
}
