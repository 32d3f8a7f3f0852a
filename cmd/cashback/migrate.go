package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/cashback-counter/internal/cli"
	"github.com/Veraticus/cashback-counter/internal/config"
	"github.com/Veraticus/cashback-counter/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Other commands migrate automatically; this one reports what it did and takes a
backup first when an existing database is upgraded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dbPath := config.DatabasePath()

			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			current, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			if status {
				cmd.Println(cli.FormatTitle("Database migration status"))
				cmd.Printf("Database:        %s\n", dbPath)
				cmd.Printf("Current version: %d\n", current)
				cmd.Printf("Latest version:  %d\n", storage.ExpectedSchemaVersion)
				return nil
			}

			if current == storage.ExpectedSchemaVersion {
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Database is up to date (version %d)", current)))
				return nil
			}

			if current > 0 {
				if err := store.AutoBackup(ctx, "migrate"); err != nil {
					return err
				}
			}

			slog.Info("Running database migrations",
				"database", dbPath,
				"from", current,
				"to", storage.ExpectedSchemaVersion)

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Migrated database from version %d to %d",
				current, storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show the current schema version without applying changes")
	return cmd
}
