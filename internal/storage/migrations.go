package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/cashback-counter/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS cards (
					id TEXT PRIMARY KEY,
					bank_name TEXT NOT NULL,
					card_type TEXT NOT NULL DEFAULT '',
					end_num TEXT NOT NULL DEFAULT '',
					issuing_region TEXT NOT NULL,
					base_rate REAL NOT NULL DEFAULT 0,
					foreign_rate REAL,
					bonus_rates TEXT NOT NULL DEFAULT '{}',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					card_id TEXT NOT NULL,
					hash TEXT NOT NULL,
					date DATETIME NOT NULL,
					year INTEGER NOT NULL,
					merchant TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL,
					spend_region TEXT NOT NULL,
					amount REAL NOT NULL,
					spend_amount REAL NOT NULL,
					rate REAL NOT NULL DEFAULT 0,
					reward REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (card_id) REFERENCES cards(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_transactions_card_year ON transactions(card_id, year)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add annual reward caps to cards",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE cards ADD COLUMN local_base_cap REAL NOT NULL DEFAULT 0`,
				`ALTER TABLE cards ADD COLUMN foreign_base_cap REAL NOT NULL DEFAULT 0`,
				`ALTER TABLE cards ADD COLUMN category_caps TEXT NOT NULL DEFAULT '{}'`,
			)
		},
	},
	{
		Version:     3,
		Description: "Track transaction source for statement imports",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE transactions ADD COLUMN source TEXT NOT NULL DEFAULT 'manual'`,
				`ALTER TABLE transactions ADD COLUMN external_id TEXT`,
				`CREATE UNIQUE INDEX idx_transactions_card_external
					ON transactions(card_id, external_id)
					WHERE external_id IS NOT NULL`,
			)
		},
	},
	{
		Version:     4,
		Description: "Count cap years in the card's issuing region",
		Up: func(tx *sql.Tx) error {
			rows, err := tx.Query(`SELECT id, issuing_region FROM cards`)
			if err != nil {
				return fmt.Errorf("failed to query cards: %w", err)
			}
			regions := make(map[string]model.Region)
			for rows.Next() {
				var id, region string
				if err := rows.Scan(&id, &region); err != nil {
					_ = rows.Close()
					return fmt.Errorf("failed to scan card: %w", err)
				}
				regions[id] = model.Region(region)
			}
			if err := rows.Err(); err != nil {
				_ = rows.Close()
				return err
			}
			_ = rows.Close()

			ctx := context.Background()
			for id, region := range regions {
				if err := reindexYears(ctx, tx, id, region); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// SchemaVersion returns the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
