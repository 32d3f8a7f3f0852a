package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/service"
)

// historyKey addresses one card's transactions in one calendar year, counted
// in the card's issuing region.
type historyKey struct {
	cardID string
	year   int
}

// MemoryStorage is an in-memory Storage.
//
// Transactions live in a flat map keyed by ID, with a secondary index from
// (card, year) to IDs for history lookups. Cards and transactions refer to
// each other only by ID.
type MemoryStorage struct {
	cards        map[string]model.RewardCard
	transactions map[string]model.Transaction
	byCardYear   map[historyKey]map[string]struct{}
	keys         map[string]historyKey // transaction ID to its index entry
	mu           sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cards:        make(map[string]model.RewardCard),
		transactions: make(map[string]model.Transaction),
		byCardYear:   make(map[historyKey]map[string]struct{}),
		keys:         make(map[string]historyKey),
	}
}

// Migrate is a no-op; the in-memory store has no schema.
func (m *MemoryStorage) Migrate(ctx context.Context) error {
	return validateContext(ctx)
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}

// CreateCard stores a new card.
func (m *MemoryStorage) CreateCard(ctx context.Context, card *model.RewardCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cards[card.ID]; exists {
		return fmt.Errorf("%w: card %s", common.ErrDuplicateEntry, card.ID)
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}
	m.cards[card.ID] = card.Clone()
	return nil
}

// GetCard returns a copy of the card with the given ID.
func (m *MemoryStorage) GetCard(ctx context.Context, id string) (*model.RewardCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, common.ErrNotFound)
	}
	clone := card.Clone()
	return &clone, nil
}

// GetCards returns copies of all cards ordered by bank and type.
func (m *MemoryStorage) GetCards(ctx context.Context) ([]model.RewardCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cards := make([]model.RewardCard, 0, len(m.cards))
	for _, card := range m.cards {
		cards = append(cards, card.Clone())
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].BankName != cards[j].BankName {
			return cards[i].BankName < cards[j].BankName
		}
		if cards[i].Type != cards[j].Type {
			return cards[i].Type < cards[j].Type
		}
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})
	return cards, nil
}

// UpdateCard replaces an existing card.
func (m *MemoryStorage) UpdateCard(ctx context.Context, card *model.RewardCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.cards[card.ID]
	if !ok {
		return fmt.Errorf("card %s: %w", card.ID, common.ErrNotFound)
	}
	updated := card.Clone()
	updated.CreatedAt = existing.CreatedAt
	m.cards[card.ID] = updated

	if updated.IssuingRegion != existing.IssuingRegion {
		var moved []model.Transaction
		for id, key := range m.keys {
			if key.cardID == card.ID {
				moved = append(moved, m.transactions[id])
			}
		}
		for _, txn := range moved {
			m.remove(txn)
			m.insert(txn)
		}
	}
	return nil
}

// DeleteCard removes a card and all of its transactions.
func (m *MemoryStorage) DeleteCard(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cards[id]; !ok {
		return fmt.Errorf("card %s: %w", id, common.ErrNotFound)
	}
	delete(m.cards, id)

	for key, ids := range m.byCardYear {
		if key.cardID != id {
			continue
		}
		for txnID := range ids {
			delete(m.transactions, txnID)
			delete(m.keys, txnID)
		}
		delete(m.byCardYear, key)
	}
	return nil
}

// SaveTransaction stores a new transaction. The card must exist.
func (m *MemoryStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transactions[txn.ID]; exists {
		return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
	}
	if err := m.checkWrite(txn); err != nil {
		return err
	}

	prepareTransaction(txn)
	m.insert(*txn)
	return nil
}

// ReplaceTransaction overwrites an existing transaction, re-indexing it if
// its card or year changed.
func (m *MemoryStorage) ReplaceTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.transactions[txn.ID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrNotFound)
	}
	if err := m.checkWrite(txn); err != nil {
		return err
	}

	prepareTransaction(txn)
	m.remove(old)
	m.insert(*txn)
	return nil
}

// DeleteTransaction removes a transaction.
func (m *MemoryStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	txn, ok := m.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	m.remove(txn)
	return nil
}

// GetTransactionByID returns a transaction by ID.
func (m *MemoryStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	txn, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return &txn, nil
}

// GetTransactionByExternalID finds a transaction imported from a statement.
func (m *MemoryStorage) GetTransactionByExternalID(ctx context.Context, cardID, externalID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if txn, ok := m.findExternal(cardID, externalID); ok {
		return &txn, nil
	}
	return nil, fmt.Errorf("transaction %s/%s: %w", cardID, externalID, common.ErrNotFound)
}

// GetCardHistory returns one card's transactions for a year, ordered by date.
func (m *MemoryStorage) GetCardHistory(ctx context.Context, cardID string, year int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateYear(year); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byCardYear[historyKey{cardID: cardID, year: year}]
	history := make([]model.Transaction, 0, len(ids))
	for id := range ids {
		history = append(history, m.transactions[id])
	}
	sortByDate(history)
	return history, nil
}

// GetTransactions returns transactions matching the filter, ordered by date.
func (m *MemoryStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Transaction
	for _, txn := range m.transactions {
		if matchesFilter(txn, m.keys[txn.ID].year, filter) {
			out = append(out, txn)
		}
	}
	sortByDate(out)

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStorage) checkWrite(txn *model.Transaction) error {
	if _, ok := m.cards[txn.CardID]; !ok {
		return fmt.Errorf("card %s: %w", txn.CardID, common.ErrNotFound)
	}
	if txn.ExternalID != "" {
		if other, ok := m.findExternal(txn.CardID, txn.ExternalID); ok && other.ID != txn.ID {
			return fmt.Errorf("%w: external ID %s", common.ErrDuplicateEntry, txn.ExternalID)
		}
	}
	return nil
}

func (m *MemoryStorage) findExternal(cardID, externalID string) (model.Transaction, bool) {
	for _, txn := range m.transactions {
		if txn.CardID == cardID && txn.ExternalID == externalID && externalID != "" {
			return txn, true
		}
	}
	return model.Transaction{}, false
}

// insert stores txn and indexes it under its card's issuing-region year.
// The card must exist.
func (m *MemoryStorage) insert(txn model.Transaction) {
	m.transactions[txn.ID] = txn
	key := historyKey{cardID: txn.CardID, year: txn.Year(m.cards[txn.CardID].IssuingRegion)}
	m.keys[txn.ID] = key
	if m.byCardYear[key] == nil {
		m.byCardYear[key] = make(map[string]struct{})
	}
	m.byCardYear[key][txn.ID] = struct{}{}
}

func (m *MemoryStorage) remove(txn model.Transaction) {
	delete(m.transactions, txn.ID)
	key, ok := m.keys[txn.ID]
	if !ok {
		return
	}
	delete(m.keys, txn.ID)
	delete(m.byCardYear[key], txn.ID)
	if len(m.byCardYear[key]) == 0 {
		delete(m.byCardYear, key)
	}
}

func matchesFilter(txn model.Transaction, year int, f service.TransactionFilter) bool {
	switch {
	case f.CardID != "" && txn.CardID != f.CardID:
		return false
	case f.Year != 0 && year != f.Year:
		return false
	case f.Category != "" && txn.Category != f.Category:
		return false
	case f.StartDate != nil && txn.Date.Before(*f.StartDate):
		return false
	case f.EndDate != nil && txn.Date.After(*f.EndDate):
		return false
	default:
		return true
	}
}

func sortByDate(txns []model.Transaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}
