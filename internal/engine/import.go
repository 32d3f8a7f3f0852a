package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
)

// ImportOptions configures a batch import.
type ImportOptions struct {
	// OnProgress is called after each draft is handled.
	OnProgress func(done, total int)
}

// ImportStats summarizes a batch import.
type ImportStats struct {
	Errors   []error
	Total    int
	Imported int
	Skipped  int // already imported, matched by external ID
	Failed   int
	Capped   int // imported transactions whose reward was cut by a cap
	Reward   float64
	Duration time.Duration
}

// Import records drafts against one card in date order, so each transaction's
// reward sees every earlier one in the batch. Drafts whose external ID is
// already stored for the card are skipped. Invalid drafts are counted and
// reported in the stats without stopping the import; storage failures stop it.
func (e *RewardEngine) Import(ctx context.Context, cardID string, drafts []Draft, opts ImportOptions) (ImportStats, error) {
	start := time.Now()
	stats := ImportStats{Total: len(drafts)}

	card, err := e.storage.GetCard(ctx, cardID)
	if err != nil {
		return stats, fmt.Errorf("failed to load card: %w", err)
	}

	ordered := make([]Draft, len(drafts))
	copy(ordered, drafts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	unlock := e.locks.lock(card.ID)
	defer unlock()

	for i, draft := range ordered {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		default:
		}

		draft.CardID = card.ID
		if err := e.importOne(ctx, card, draft, &stats); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(ordered))
		}
		if (i+1)%e.logEvery == 0 {
			slog.Info("Import progress",
				"card", card.ID,
				"processed", i+1,
				"total", len(ordered),
				"imported", stats.Imported)
		}
	}

	stats.Duration = time.Since(start)
	stats.Reward = model.RoundMoney(stats.Reward)
	slog.Info("Import complete",
		"card", card.ID,
		"imported", stats.Imported,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"capped", stats.Capped,
		"reward", stats.Reward,
		"duration", stats.Duration)
	return stats, nil
}

// importOne records a single draft, updating stats. Only errors that should
// abort the whole import are returned.
func (e *RewardEngine) importOne(ctx context.Context, card *model.RewardCard, draft Draft, stats *ImportStats) error {
	if draft.ExternalID != "" {
		_, err := e.storage.GetTransactionByExternalID(ctx, card.ID, draft.ExternalID)
		switch {
		case err == nil:
			stats.Skipped++
			return nil
		case !errors.Is(err, common.ErrNotFound):
			return fmt.Errorf("failed to check for existing transaction %s: %w", draft.ExternalID, err)
		}
	}

	if err := draft.Validate(); err != nil {
		stats.Failed++
		stats.Errors = append(stats.Errors, fmt.Errorf("%s %s: %w", draft.Date.Format("2006-01-02"), draft.Merchant, err))
		return nil
	}

	amount, err := e.billingAmount(ctx, card, draft)
	if err != nil {
		stats.Failed++
		stats.Errors = append(stats.Errors, fmt.Errorf("%s %s: %w", draft.Date.Format("2006-01-02"), draft.Merchant, err))
		return nil
	}

	txn, err := e.record(ctx, card, draft, amount)
	if err != nil {
		return err
	}

	stats.Imported++
	stats.Reward += txn.Reward
	if txn.WasCapped() {
		stats.Capped++
	}
	return nil
}
