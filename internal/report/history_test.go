package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/cashback-counter/internal/engine"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/report"
	"github.com/Veraticus/cashback-counter/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapUsageFromRecordedHistory(t *testing.T) {
	card := testutil.NewCard("hk").
		Base(0.01).
		Caps(10, 0).
		Bonus(model.CategoryDining, 0.04, 20).
		Build()
	db := testutil.SetupTestDB(t, card)
	eng := engine.New(db.Storage, nil)
	ctx := context.Background()

	for _, d := range []engine.Draft{
		{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Merchant: "Cafe", Category: model.CategoryDining, SpendAmount: 400},
		{Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), Merchant: "Bistro", Category: model.CategoryDining, SpendAmount: 400},
		{Date: time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), Merchant: "Shop", Category: model.CategoryOther, SpendAmount: 500},
	} {
		d.CardID = card.ID
		d.SpendRegion = model.RegionHK
		_, err := eng.Record(ctx, d)
		require.NoError(t, err)
	}

	history, err := db.Storage.GetCardHistory(ctx, card.ID, 2024)
	require.NoError(t, err)
	require.Len(t, history, 3)

	rows := report.CapUsage(db.MustGetCard(card.ID), 2024, history)
	require.Len(t, rows, 3)
	// 4 + 4 + 5 of base against a 10 cap.
	assert.InDelta(t, 13, rows[0].Used, 1e-9)
	assert.InDelta(t, 0, rows[0].Remaining, 1e-9)
	assert.InDelta(t, 100, rows[0].Percent, 1e-9)
	// 16 + 16 of dining bonus against a 20 cap.
	assert.Equal(t, model.CategoryDining, rows[2].Category)
	assert.InDelta(t, 32, rows[2].Used, 1e-9)

	totals := report.Totals(history)
	// Cafe 4+16, Bistro 4+4, Shop 2.
	assert.InDelta(t, 30, totals.Cashback, 1e-9)
	assert.InDelta(t, 30.0/1300, report.EffectiveRate(totals), 1e-9)
}
