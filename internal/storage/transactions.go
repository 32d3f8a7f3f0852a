package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
	"github.com/Veraticus/cashback-counter/internal/service"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const transactionColumns = `id, card_id, hash, date, merchant, category, spend_region,
	amount, spend_amount, rate, reward, source, external_id, created_at`

// SaveTransaction inserts a new transaction. The card must exist.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	prepareTransaction(txn)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		region, err := cardRegion(ctx, tx, txn.CardID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (`+transactionColumns+`, year)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, append(transactionArgs(txn), txn.Year(region))...)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
			}
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		return nil
	})
}

// ReplaceTransaction overwrites every field of an existing transaction.
func (s *SQLiteStorage) ReplaceTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	prepareTransaction(txn)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		region, err := cardRegion(ctx, tx, txn.CardID)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE transactions
			SET card_id = ?, hash = ?, date = ?, merchant = ?, category = ?, spend_region = ?,
			    amount = ?, spend_amount = ?, rate = ?, reward = ?, source = ?, external_id = ?,
			    created_at = ?, year = ?
			WHERE id = ?
		`, append(transactionArgs(txn)[1:], txn.Year(region), txn.ID)...)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: transaction %s", common.ErrDuplicateEntry, txn.ID)
			}
			return fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
		}
		return requireAffected(result, "transaction", txn.ID)
	})
}

// DeleteTransaction removes a transaction.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireAffected(result, "transaction", id)
}

// GetTransactionByID retrieves a single transaction by its ID.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetTransactionByExternalID finds a transaction imported from a statement.
func (s *SQLiteStorage) GetTransactionByExternalID(ctx context.Context, cardID, externalID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(cardID, "cardID"); err != nil {
		return nil, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE card_id = ? AND external_id = ?`,
		cardID, externalID)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s/%s: %w", cardID, externalID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetCardHistory returns a card's transactions for one calendar year,
// served from the (card_id, year) index.
func (s *SQLiteStorage) GetCardHistory(ctx context.Context, cardID string, year int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(cardID, "cardID"); err != nil {
		return nil, err
	}
	if err := validateYear(year); err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, s.db,
		`SELECT `+transactionColumns+` FROM transactions WHERE card_id = ? AND year = ? ORDER BY date, id`,
		cardID, year)
}

// GetTransactions retrieves transactions matching the filter, ordered by date.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.CardID != "" {
		where = append(where, "card_id = ?")
		args = append(args, filter.CardID)
	}
	if filter.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, filter.Year)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "date <= ?")
		args = append(args, filter.EndDate.UTC())
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return s.queryTransactions(ctx, s.db, query, args...)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, q queryable, query string, args ...any) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		category   string
		region     string
		source     string
		externalID sql.NullString
		createdAt  sql.NullTime
	)

	err := row.Scan(
		&txn.ID,
		&txn.CardID,
		&txn.Hash,
		&txn.Date,
		&txn.Merchant,
		&category,
		&region,
		&txn.Amount,
		&txn.SpendAmount,
		&txn.Rate,
		&txn.Reward,
		&source,
		&externalID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Date = txn.Date.UTC()
	txn.Category = model.Category(category)
	txn.SpendRegion = model.Region(region)
	txn.Source = model.TransactionSource(source)
	txn.ExternalID = externalID.String
	if createdAt.Valid {
		txn.CreatedAt = createdAt.Time
	}

	return &txn, nil
}

// prepareTransaction fills derived fields before a write.
func prepareTransaction(txn *model.Transaction) {
	txn.Date = txn.Date.UTC()
	if txn.Source == "" {
		txn.Source = model.SourceManual
	}
	if txn.SpendAmount == 0 {
		txn.SpendAmount = txn.Amount
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	txn.Hash = txn.GenerateHash()
}

// transactionArgs returns values in transactionColumns order.
func transactionArgs(txn *model.Transaction) []any {
	var externalID sql.NullString
	if txn.ExternalID != "" {
		externalID = sql.NullString{String: txn.ExternalID, Valid: true}
	}
	return []any{
		txn.ID,
		txn.CardID,
		txn.Hash,
		txn.Date,
		txn.Merchant,
		string(txn.Category),
		string(txn.SpendRegion),
		txn.Amount,
		txn.SpendAmount,
		txn.Rate,
		txn.Reward,
		string(txn.Source),
		externalID,
		txn.CreatedAt,
	}
}

// cardRegion returns the issuing region of an existing card.
func cardRegion(ctx context.Context, q queryable, cardID string) (model.Region, error) {
	var region string
	err := q.QueryRowContext(ctx, `SELECT issuing_region FROM cards WHERE id = ?`, cardID).Scan(&region)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("card %s: %w", cardID, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up card: %w", err)
	}
	return model.Region(region), nil
}

// reindexYears rewrites the year column of a card's transactions after its
// issuing region changed.
func reindexYears(ctx context.Context, tx *sql.Tx, cardID string, region model.Region) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, date FROM transactions WHERE card_id = ?`, cardID)
	if err != nil {
		return fmt.Errorf("failed to query card transactions: %w", err)
	}

	years := make(map[string]int)
	for rows.Next() {
		var (
			id   string
			date time.Time
		)
		if err := rows.Scan(&id, &date); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan transaction date: %w", err)
		}
		years[id] = model.CapYear(date, region)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for id, year := range years {
		if _, err := tx.ExecContext(ctx, `UPDATE transactions SET year = ? WHERE id = ?`, year, id); err != nil {
			return fmt.Errorf("failed to update year of transaction %s: %w", id, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
