package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scrypster/activity-architect/internal/logging"
)

// Create writes a consistent copy of the database at dbPath into dir and
// verifies it. VACUUM INTO handles WAL mode and produces a point-in-time
// snapshot while the store stays open.
func Create(ctx context.Context, dbPath, dir string, now time.Time) (Info, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Info{}, fmt.Errorf("backup: create directory: %w", err)
	}
	dest := filepath.Join(dir, filePrefix+now.UTC().Format(timeLayout)+fileSuffix)
	if _, err := os.Stat(dest); err == nil {
		return Info{}, fmt.Errorf("backup: %s already exists", dest)
	}

	start := time.Now()
	if err := vacuumInto(ctx, dbPath, dest); err != nil {
		return Info{}, err
	}
	if err := verify(ctx, dest); err != nil {
		_ = os.Remove(dest)
		return Info{}, err
	}

	st, err := os.Stat(dest)
	if err != nil {
		return Info{}, fmt.Errorf("backup: stat %s: %w", dest, err)
	}
	logging.Info().
		Str("path", dest).
		Int64("size", st.Size()).
		Dur("duration", time.Since(start)).
		Msg("backup created")
	return Info{Path: dest, Timestamp: now.UTC().Truncate(time.Second), Size: st.Size(), Verified: true}, nil
}

func vacuumInto(ctx context.Context, sourcePath, destPath string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", sourcePath))
	if err != nil {
		return fmt.Errorf("backup: open source database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("backup: ping source database: %w", err)
	}

	// VACUUM INTO takes a literal, not a bind parameter.
	quoted := strings.ReplaceAll(destPath, "'", "''")
	if _, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return fmt.Errorf("backup: vacuum into %s: %w", destPath, err)
	}
	return nil
}

// verify runs SQLite's integrity check against a backup.
func verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check failed: %s", result)
	}
	return nil
}

// Restore replaces the database at targetPath with backupPath. The store
// must be closed. Stale WAL and shared-memory files next to the target are
// removed so SQLite does not replay them over the restored file.
func Restore(ctx context.Context, backupPath, targetPath string) error {
	if err := verify(ctx, backupPath); err != nil {
		return fmt.Errorf("backup: verification failed: %w", err)
	}

	src, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", backupPath, err)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o700); err != nil {
		return fmt.Errorf("backup: create target directory: %w", err)
	}
	tmp := targetPath + ".restore"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", tmp, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("backup: copy: %w", err)
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("backup: sync: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("backup: close: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(targetPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("backup: remove stale %s: %w", suffix, err)
		}
	}
	if err := os.Rename(tmp, targetPath); err != nil {
		return fmt.Errorf("backup: replace %s: %w", targetPath, err)
	}

	logging.Info().Str("from", backupPath).Str("to", targetPath).Msg("database restored")
	return verify(ctx, targetPath)
}
