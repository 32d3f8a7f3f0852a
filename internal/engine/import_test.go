package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statementDraft(fitID string, amount float64, date time.Time) Draft {
	d := localDraft(amount, date)
	d.CardID = ""
	d.Source = model.SourceOFX
	d.ExternalID = fitID
	return d
}

func TestRewardEngine_Import(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	e := setupEngine(t, store, nil)

	// Out of order on purpose: the earliest spend gets the cap first.
	drafts := []Draft{
		statementDraft("FIT-3", 600, on(time.March, 1)),
		statementDraft("FIT-1", 600, on(time.January, 1)),
		statementDraft("FIT-2", 600, on(time.February, 1)),
	}

	var progress []int
	stats, err := e.Import(ctx, "card-1", drafts, ImportOptions{
		OnProgress: func(done, total int) {
			assert.Equal(t, 3, total)
			progress = append(progress, done)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Imported)
	assert.Equal(t, 2, stats.Capped)
	assert.InDelta(t, 10, stats.Reward, 1e-9)
	assert.Equal(t, []int{1, 2, 3}, progress)

	jan, err := store.GetTransactionByExternalID(ctx, "card-1", "FIT-1")
	require.NoError(t, err)
	assert.InDelta(t, 6, jan.Reward, 1e-9)
	assert.Equal(t, model.SourceOFX, jan.Source)

	mar, err := store.GetTransactionByExternalID(ctx, "card-1", "FIT-3")
	require.NoError(t, err)
	assert.InDelta(t, 0, mar.Reward, 1e-9)

	// Re-importing the same statement is a no-op.
	stats, err = e.Import(ctx, "card-1", drafts, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Imported)
	assert.Equal(t, 3, stats.Skipped)
}

func TestRewardEngine_ImportCountsBadDrafts(t *testing.T) {
	ctx := context.Background()
	e := setupEngine(t, storage.NewMemoryStorage(), fixedConverter{err: common.ErrRateUnavailable})

	blank := statementDraft("FIT-2", 10, on(time.January, 2))
	blank.Merchant = ""
	foreign := statementDraft("FIT-3", 10, on(time.January, 3))
	foreign.SpendRegion = model.RegionUS

	stats, err := e.Import(ctx, "card-1", []Draft{
		statementDraft("FIT-1", 10, on(time.January, 1)),
		blank,
		foreign,
	}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 2, stats.Failed)
	require.Len(t, stats.Errors, 2)
	assert.ErrorIs(t, stats.Errors[0], ErrInvalidDraft)
	assert.ErrorIs(t, stats.Errors[1], common.ErrRateUnavailable)
}

func TestRewardEngine_ImportUnknownCard(t *testing.T) {
	e := setupEngine(t, storage.NewMemoryStorage(), nil)
	_, err := e.Import(context.Background(), "missing", nil, ImportOptions{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRewardEngine_ImportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := setupEngine(t, storage.NewMemoryStorage(), nil)
	stats, err := e.Import(ctx, "card-1", []Draft{statementDraft("FIT-1", 10, on(time.January, 1))}, ImportOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.Imported)
}
