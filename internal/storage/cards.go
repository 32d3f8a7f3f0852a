package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
	"github.com/Veraticus/cashback-counter/internal/model"
)

const cardColumns = `id, bank_name, card_type, end_num, issuing_region, base_rate, foreign_rate,
	bonus_rates, local_base_cap, foreign_base_cap, category_caps, created_at`

// CreateCard inserts a new card. CreatedAt is set when zero.
func (s *SQLiteStorage) CreateCard(ctx context.Context, card *model.RewardCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}

	bonus, caps, err := marshalRates(card)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.BankName,
		card.Type,
		card.EndNum,
		string(card.IssuingRegion),
		card.BaseRate,
		nullableRate(card.ForeignRate),
		bonus,
		card.LocalBaseCap,
		card.ForeignBaseCap,
		caps,
		card.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: card %s", common.ErrDuplicateEntry, card.ID)
		}
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

// GetCard returns the card with the given ID.
func (s *SQLiteStorage) GetCard(ctx context.Context, id string) (*model.RewardCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// GetCards returns all cards ordered by bank and type.
func (s *SQLiteStorage) GetCards(ctx context.Context) ([]model.RewardCard, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY bank_name, card_type, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []model.RewardCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}

	return cards, rows.Err()
}

// UpdateCard replaces a card's details and reward policy. Rewards already
// recorded on the card's transactions are left untouched; their cap years
// follow a change of issuing region.
func (s *SQLiteStorage) UpdateCard(ctx context.Context, card *model.RewardCard) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}

	bonus, caps, err := marshalRates(card)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		previous, err := cardRegion(ctx, tx, card.ID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE cards
			SET bank_name = ?, card_type = ?, end_num = ?, issuing_region = ?, base_rate = ?,
			    foreign_rate = ?, bonus_rates = ?, local_base_cap = ?, foreign_base_cap = ?, category_caps = ?
			WHERE id = ?
		`,
			card.BankName,
			card.Type,
			card.EndNum,
			string(card.IssuingRegion),
			card.BaseRate,
			nullableRate(card.ForeignRate),
			bonus,
			card.LocalBaseCap,
			card.ForeignBaseCap,
			caps,
			card.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update card: %w", err)
		}

		if previous != card.IssuingRegion {
			return reindexYears(ctx, tx, card.ID, card.IssuingRegion)
		}
		return nil
	})
}

// DeleteCard removes a card and, through the foreign key, its transactions.
func (s *SQLiteStorage) DeleteCard(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE card_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete card transactions: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete card: %w", err)
		}
		return requireAffected(result, "card", id)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*model.RewardCard, error) {
	var (
		card        model.RewardCard
		region      string
		foreignRate sql.NullFloat64
		bonus, caps string
		createdAt   sql.NullTime
	)

	err := row.Scan(
		&card.ID,
		&card.BankName,
		&card.Type,
		&card.EndNum,
		&region,
		&card.BaseRate,
		&foreignRate,
		&bonus,
		&card.LocalBaseCap,
		&card.ForeignBaseCap,
		&caps,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	card.IssuingRegion = model.Region(region)
	if foreignRate.Valid {
		card.ForeignRate = model.Rate(foreignRate.Float64)
	}
	if createdAt.Valid {
		card.CreatedAt = createdAt.Time
	}
	if card.CategoryBonusRates, err = unmarshalRates(bonus); err != nil {
		return nil, fmt.Errorf("failed to parse bonus rates: %w", err)
	}
	if card.CategoryCaps, err = unmarshalRates(caps); err != nil {
		return nil, fmt.Errorf("failed to parse category caps: %w", err)
	}

	return &card, nil
}

func marshalRates(card *model.RewardCard) (bonus, caps string, err error) {
	b, err := json.Marshal(nonNilRates(card.CategoryBonusRates))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode bonus rates: %w", err)
	}
	c, err := json.Marshal(nonNilRates(card.CategoryCaps))
	if err != nil {
		return "", "", fmt.Errorf("failed to encode category caps: %w", err)
	}
	return string(b), string(c), nil
}

func unmarshalRates(s string) (map[model.Category]float64, error) {
	rates := make(map[model.Category]float64)
	if s == "" {
		return rates, nil
	}
	if err := json.Unmarshal([]byte(s), &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

func nonNilRates(m map[model.Category]float64) map[model.Category]float64 {
	if m == nil {
		return map[model.Category]float64{}
	}
	return m
}

func nullableRate(rate *float64) sql.NullFloat64 {
	if rate == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *rate, Valid: true}
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, common.ErrNotFound)
	}
	return nil
}
