// Package backup snapshots and restores the SQLite store that holds custom
// activities and taxonomy edits.
package backup

import (
	"errors"
	"time"
)

// filePrefix and fileSuffix bracket the timestamp in backup file names.
const (
	filePrefix = "architect-"
	fileSuffix = ".db"
	timeLayout = "20060102-150405"
)

// ErrNoBackups is returned by Latest for an empty backup directory.
var ErrNoBackups = errors.New("no backups found")

// Info contains metadata about a backup file.
type Info struct {
	// Path is the full path to the backup file
	Path string

	// Timestamp is when the backup was created
	Timestamp time.Time

	// Size is the backup file size in bytes
	Size int64

	// Verified indicates if the backup passed integrity check
	Verified bool
}
