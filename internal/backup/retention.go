package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// List returns the backups in dir, newest first. Files that do not follow
// the backup naming scheme are ignored. A missing directory is empty.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: read directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed while listing
		}
		backups = append(backups, Info{
			Path:      filepath.Join(dir, entry.Name()),
			Timestamp: ts,
			Size:      info.Size(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Latest returns the newest backup in dir.
func Latest(dir string) (Info, error) {
	backups, err := List(dir)
	if err != nil {
		return Info{}, err
	}
	if len(backups) == 0 {
		return Info{}, ErrNoBackups
	}
	return backups[0], nil
}

// Prune keeps the newest keep backups in dir and deletes the rest. It
// returns the deleted paths. keep <= 0 keeps everything.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	backups, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var (
		deleted []string
		lastErr error
	)
	for _, b := range backups[keep:] {
		if err := os.Remove(b.Path); err != nil {
			// keep deleting the others
			lastErr = err
			continue
		}
		deleted = append(deleted, b.Path)
	}
	if lastErr != nil {
		return deleted, fmt.Errorf("backup: failed to delete some backups: %w", lastErr)
	}
	return deleted, nil
}

// parseName extracts the timestamp from architect-YYYYMMDD-HHMMSS.db.
func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
