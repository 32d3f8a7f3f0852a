// Package testutil provides test databases seeded with reward cards and
// transactions.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/service"
	"github.com/Veraticus/cashback-counter/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
	Cards   map[string]*model.RewardCard
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup  func(context.Context, service.Storage) error
	Cards        []*model.RewardCard
	Transactions []*model.Transaction
	// InMemory uses MemoryStorage instead of an in-memory SQLite database.
	InMemory bool
}

// SetupTestDB creates a migrated in-memory SQLite database seeded with cards.
// It is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.NewCard("hsbc-red").Issued(model.RegionHK).Base(0.004).Build(),
//	)
func SetupTestDB(t *testing.T, cards ...*model.RewardCard) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Cards: cards})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()
	ctx := context.Background()

	var store service.Storage
	if opts.InMemory {
		store = storage.NewMemoryStorage()
	} else {
		db, err := storage.NewSQLiteStorage(":memory:")
		if err != nil {
			t.Fatalf("failed to create test database: %v", err)
		}
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		store = db
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	tdb := &TestDB{
		Storage: store,
		Cards:   make(map[string]*model.RewardCard),
		t:       t,
	}
	for _, card := range opts.Cards {
		tdb.AddCard(card)
	}
	for _, txn := range opts.Transactions {
		tdb.AddTransaction(txn)
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return tdb
}

// AddCard stores a card or fails the test.
func (db *TestDB) AddCard(card *model.RewardCard) {
	db.t.Helper()
	if err := db.Storage.CreateCard(context.Background(), card); err != nil {
		db.t.Fatalf("failed to seed card %q: %v", card.ID, err)
	}
	db.Cards[card.ID] = card
}

// AddTransaction stores a transaction as-is, reward snapshot included, or
// fails the test.
func (db *TestDB) AddTransaction(txn *model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransaction(context.Background(), txn); err != nil {
		db.t.Fatalf("failed to seed transaction %q: %v", txn.ID, err)
	}
}

// MustGetCard returns the stored card or fails the test.
func (db *TestDB) MustGetCard(id string) *model.RewardCard {
	db.t.Helper()
	card, err := db.Storage.GetCard(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to load card %q: %v", id, err)
	}
	return card
}
