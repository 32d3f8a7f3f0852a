package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardBuilder(t *testing.T) {
	card := NewCard("red").
		Named("HSBC", "Red").
		Issued(model.RegionHK).
		Base(0.004).
		Foreign(0.01).
		Caps(100, 0).
		Bonus(model.CategoryDigital, 0.036, 400).
		Bonus(model.CategoryDining, 0.01, 0).
		Build()

	require.NoError(t, card.Validate())
	assert.Equal(t, "HSBC Red", card.DisplayName())
	assert.InDelta(t, 0.01, *card.ForeignRate, 1e-9)
	assert.InDelta(t, 400, card.CategoryCaps[model.CategoryDigital], 1e-9)
	_, capped := card.CategoryCaps[model.CategoryDining]
	assert.False(t, capped)
}

func TestSetupTestDB(t *testing.T) {
	for _, inMemory := range []bool{false, true} {
		db := SetupTestDBWithOptions(t, TestDBOptions{
			InMemory: inMemory,
			Cards:    []*model.RewardCard{NewCard("a").Base(0.01).Build()},
			Transactions: []*model.Transaction{{
				ID:          "t1",
				CardID:      "a",
				Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				Merchant:    "Shop",
				Category:    model.CategoryOther,
				SpendRegion: model.RegionHK,
				Amount:      100,
				Rate:        0.01,
				Reward:      1,
			}},
		})

		assert.Equal(t, "a", db.MustGetCard("a").ID)
		txns, err := db.Storage.GetTransactions(context.Background(), service.TransactionFilter{CardID: "a"})
		require.NoError(t, err)
		assert.Len(t, txns, 1)
	}
}
