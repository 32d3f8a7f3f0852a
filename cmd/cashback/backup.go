package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/cashback-counter/internal/cli"
	"github.com/Veraticus/cashback-counter/internal/config"
	"github.com/Veraticus/cashback-counter/internal/storage"
	"github.com/spf13/cobra"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage database backups",
		Long: `Create, list, restore, and delete database backups.

An automatic backup is also taken before imports, card deletions and schema
migrations; the most recent few are kept.`,
		Example: `  # Back up before changing a card's policy
  cashback backup create --tag before-2025-rates

  # Put it back
  cashback backup restore before-2025-rates`,
	}

	cmd.AddCommand(createBackupCmd())
	cmd.AddCommand(listBackupsCmd())
	cmd.AddCommand(restoreBackupCmd())
	cmd.AddCommand(deleteBackupCmd())

	return cmd
}

func createBackupCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			backup, err := store.CreateBackup(ctx, tag, description)
			if err != nil {
				return fmt.Errorf("failed to create backup: %w", err)
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Created backup %s (%s)",
				cli.InfoStyle.Render(backup.ID), formatFileSize(backup.Size))))
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Backup name (generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the backup")
	return cmd
}

func listBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := storage.ListBackups(config.DatabasePath())
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}
			if len(backups) == 0 {
				cmd.Println(cli.SubtleStyle.Render("No backups found."))
				return nil
			}

			rows := make([][]string, 0, len(backups))
			for _, b := range backups {
				kind := "manual"
				if b.IsAuto {
					kind = "auto"
				}
				rows = append(rows, []string{
					cli.InfoStyle.Render(b.ID),
					formatRelativeTime(b.CreatedAt),
					formatFileSize(b.Size),
					strconv.Itoa(b.Cards),
					strconv.Itoa(b.Transactions),
					cli.SubtleStyle.Render(kind),
				})
			}
			cmd.Print(cli.RenderTable([]string{"NAME", "CREATED", "SIZE", "CARDS", "TRANSACTIONS", "TYPE"}, rows))
			return nil
		},
	}
}

func restoreBackupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Replace the database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			if !force {
				ok, err := cli.Confirm(ctx, cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Replace your current database with backup %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					cmd.Println(cli.SubtleStyle.Render("Restore canceled."))
					return nil
				}
			}

			// Keep the current state restorable too, then close before replacing.
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			if err := store.AutoBackup(ctx, "restore"); err != nil {
				_ = store.Close()
				return err
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close database: %w", err)
			}

			if err := storage.RestoreBackup(config.DatabasePath(), id); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess("Restored backup " + cli.InfoStyle.Render(id)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func deleteBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.DeleteBackup(config.DatabasePath(), args[0]); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess("Deleted backup " + cli.InfoStyle.Render(args[0])))
			return nil
		},
	}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return pluralize(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return pluralize(int(d.Hours()), "hour") + " ago"
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
