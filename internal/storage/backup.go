package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/cashback-counter/internal/common"
)

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupExists    = errors.New("backup already exists")
	ErrBackupCorrupted = fmt.Errorf("backup %w", common.ErrDatabaseCorrupted)
	ErrInvalidBackupID = errors.New("invalid backup ID")
)

// maxAutoBackups is how many automatic backups are kept per database.
const maxAutoBackups = 5

// Backup describes a snapshot of the database stored next to it.
type Backup struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	Size          int64     `json:"size"`
	Cards         int       `json:"cards"`
	Transactions  int       `json:"transactions"`
	SchemaVersion int       `json:"schema_version"`
	IsAuto        bool      `json:"is_auto"`
}

// BackupDir returns the directory holding backups for the database at dbPath.
func BackupDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "backups")
}

// backupTimeLayout stamps generated backup IDs.
const backupTimeLayout = "20060102-150405"

// CreateBackup snapshots the database with VACUUM INTO. An empty tag
// generates one from the current time; a given tag must not exist yet.
func (s *SQLiteStorage) CreateBackup(ctx context.Context, tag, description string) (*Backup, error) {
	generated := tag == ""
	if generated {
		tag = "backup-" + time.Now().Format(backupTimeLayout)
	}
	return s.createBackup(ctx, tag, description, false, generated)
}

// AutoBackup snapshots the database before a risky operation and prunes
// automatic backups beyond the most recent few.
func (s *SQLiteStorage) AutoBackup(ctx context.Context, reason string) error {
	if s.dbPath == ":memory:" {
		return nil
	}
	tag := fmt.Sprintf("auto-%s-%s", reason, time.Now().Format(backupTimeLayout))
	if _, err := s.createBackup(ctx, tag, "Automatic backup before "+reason, true, true); err != nil {
		return fmt.Errorf("failed to create automatic backup: %w", err)
	}

	backups, err := ListBackups(s.dbPath)
	if err != nil {
		slog.Warn("failed to list backups for cleanup", "error", err)
		return nil
	}
	autoCount := 0
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		autoCount++
		if autoCount > maxAutoBackups {
			if err := DeleteBackup(s.dbPath, b.ID); err != nil {
				slog.Debug("failed to delete old automatic backup", "error", err, "backup", b.ID)
			}
		}
	}
	return nil
}

// createBackup writes the snapshot. When generated is set, a tag that is
// already taken gets a numeric suffix instead of failing.
func (s *SQLiteStorage) createBackup(ctx context.Context, tag, description string, auto, generated bool) (*Backup, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateBackupID(tag); err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(BackupDir(s.dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if generated {
		tag = uniqueBackupID(dir, tag)
	}
	dest := filepath.Join(dir, tag+".db")
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupExists, tag)
	}
	if strings.ContainsAny(dest, `'";`) {
		return nil, fmt.Errorf("invalid backup path %q", dest)
	}

	backup := Backup{
		ID:          tag,
		CreatedAt:   time.Now().UTC(),
		Description: description,
		IsAuto:      auto,
	}
	if backup.SchemaVersion, err = s.SchemaVersion(ctx); err != nil {
		return nil, err
	}
	for query, target := range map[string]*int{
		"SELECT COUNT(*) FROM cards":        &backup.Cards,
		"SELECT COUNT(*) FROM transactions": &backup.Transactions,
	} {
		// Tables are absent before the first migration.
		if err := s.db.QueryRowContext(ctx, query).Scan(target); err != nil {
			*target = 0
		}
	}

	// #nosec G201 - dest is built from a validated ID and checked above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	backup.Size = info.Size()

	if err := writeBackupMeta(dir, backup); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("failed to remove backup after metadata failure", "error", rmErr)
		}
		return nil, err
	}
	return &backup, nil
}

// ListBackups returns the backups for the database at dbPath, newest first.
func ListBackups(dbPath string) ([]Backup, error) {
	dir := BackupDir(dbPath)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Backup
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		backup, err := readBackupMeta(filepath.Join(dir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, *backup)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// RestoreBackup replaces the database at dbPath with the named backup.
// The database must not be open.
func RestoreBackup(dbPath, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}
	src := filepath.Join(BackupDir(dbPath), id+".db")
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}
	if err := checkIntegrity(src); err != nil {
		return fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}

	if err := copyFile(src, dbPath); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	// A WAL left over from the replaced database would be replayed on open.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}
	return nil
}

// DeleteBackup removes a backup and its metadata.
func DeleteBackup(dbPath, id string) error {
	if err := validateBackupID(id); err != nil {
		return err
	}
	dir := BackupDir(dbPath)
	if err := os.Remove(filepath.Join(dir, id+".db")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
		}
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	if err := os.Remove(filepath.Join(dir, id+".meta.json")); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("failed to remove backup metadata", "error", err, "backup", id)
	}
	return nil
}

// uniqueBackupID returns base, or base with the first free "-N" suffix.
func uniqueBackupID(dir, base string) string {
	id := base
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, id+".db")); errors.Is(err, os.ErrNotExist) {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

func validateBackupID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidBackupID, id)
	}
	return nil
}

func writeBackupMeta(dir string, backup Backup) error {
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup metadata: %w", err)
	}
	path := filepath.Join(dir, backup.ID+".meta.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	return os.Rename(tmp, path)
}

func readBackupMeta(path string) (*Backup, error) {
	// #nosec G304 - path comes from the backup directory listing
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, err
	}
	return &backup, nil
}

func checkIntegrity(path string) error {
	store, err := NewSQLiteStorage(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var result string
	if err := store.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 - src is a backup path built from a validated ID
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	tmp := dst + ".tmp"
	// #nosec G304 - dst is the configured database path
	destination, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := destination.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
