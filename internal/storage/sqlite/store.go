// Package sqlite implements storage.Store on SQLite using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/storage"
	"github.com/scrypster/activity-architect/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore opens the database at dsn and creates the schema. If the first
// open fails because a crashed process left stale WAL files behind, they are
// removed and the open is retried once.
func NewStore(dsn string) (*Store, error) {
	store, err := openStore(dsn)
	if err == nil {
		return store, nil
	}

	if !isRecoverableWALError(err) {
		return nil, err
	}

	dbPath := dbPathFromDSN(dsn)
	if dbPath == "" || !isWALStale(dbPath) {
		return nil, err
	}

	removeStaleWAL(dbPath)

	store, retryErr := openStore(dsn)
	if retryErr != nil {
		return nil, fmt.Errorf("sqlite: failed after WAL recovery: %w (original: %v)", retryErr, err)
	}

	logging.Warn().Str("path", dbPath).Msg("sqlite: recovered from stale WAL files")
	return store, nil
}

func openStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// One connection serialises writers; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close flushes the WAL into the main database file and releases resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logging.Warn().Err(err).Msg("sqlite: WAL checkpoint on close failed")
	}
	return s.db.Close()
}

// ---- dimensions ----

// ListDimensions implements storage.CatalogStore.
func (s *Store) ListDimensions(ctx context.Context) (types.DimensionCatalog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, label, description, category, sort_order FROM dimensions ORDER BY sort_order, key`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list dimensions: %w", err)
	}
	defer rows.Close()

	dims := types.DimensionCatalog{}
	for rows.Next() {
		var d types.Dimension
		if err := rows.Scan(&d.Key, &d.Label, &d.Description, &d.Category, &d.Order); err != nil {
			return nil, fmt.Errorf("sqlite: scan dimension: %w", err)
		}
		dims = append(dims, d)
	}
	return dims, rows.Err()
}

// ListActivities implements storage.CatalogStore.
func (s *Store) ListActivities(ctx context.Context) ([]types.Activity, error) {
	return s.queryActivities(ctx, false,
		`SELECT id, name, scores, created_at, updated_at FROM activities ORDER BY seq`)
}

// ReplaceCatalog implements storage.CatalogStore.
func (s *Store) ReplaceCatalog(ctx context.Context, dims []types.Dimension, activities []types.Activity, batchSize int) error {
	if err := validateDimensions(dims); err != nil {
		return err
	}
	if err := validateBatch(activities); err != nil {
		return err
	}
	if batchSize <= 0 || batchSize > len(activities) {
		batchSize = len(activities)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM dimensions`); err != nil {
			return fmt.Errorf("sqlite: clear dimensions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM activities`); err != nil {
			return fmt.Errorf("sqlite: clear activities: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO dimensions (key, label, description, category, sort_order) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("sqlite: prepare dimension insert: %w", err)
		}
		defer stmt.Close()
		for _, d := range dims {
			if _, err := stmt.ExecContext(ctx, d.Key, d.Label, d.Description, d.Category, d.Order); err != nil {
				return fmt.Errorf("sqlite: insert dimension %q: %w", d.Key, err)
			}
		}

		for start := 0; start < len(activities); start += batchSize {
			end := start + batchSize
			if end > len(activities) {
				end = len(activities)
			}
			if err := s.insertActivities(ctx, tx, activities[start:end]); err != nil {
				return fmt.Errorf("activities %d-%d: %w", start, end, err)
			}
		}
		return nil
	})
}

// QueryActivitiesByDimension implements storage.CatalogStore.
func (s *Store) QueryActivitiesByDimension(ctx context.Context, key string, min, max float64) ([]types.Activity, error) {
	if err := storage.ValidateRange(key, min, max); err != nil {
		return nil, err
	}
	path := jsonPath(key)
	return s.queryActivities(ctx, false,
		`SELECT id, name, scores, created_at, updated_at FROM activities
		 WHERE json_type(scores, ?) IN ('integer', 'real')
		   AND json_extract(scores, ?) BETWEEN ? AND ?
		 ORDER BY seq`,
		path, path, min, max)
}

func (s *Store) insertActivities(ctx context.Context, tx *sql.Tx, activities []types.Activity) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO activities (id, name, scores, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare activity insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for i := range activities {
		a := &activities[i]
		scores, err := encodeScores(a.Scores)
		if err != nil {
			return err
		}
		id := a.ID
		if id == "" {
			id = uuid.New().String()
		}
		created := a.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, id, a.Name, scores, formatTime(created), formatTime(now)); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: activity %q already exists", storage.ErrInvalidInput, a.Name)
			}
			return fmt.Errorf("sqlite: insert activity %q: %w", a.Name, err)
		}
	}
	return nil
}

// ---- custom activities ----

// SaveCustomActivity implements storage.CustomActivityStore. The creation
// order and ID of an existing activity are preserved on update.
func (s *Store) SaveCustomActivity(ctx context.Context, activity *types.Activity) error {
	if err := storage.ValidateActivity(activity); err != nil {
		return err
	}
	scores, err := encodeScores(activity.Scores)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now
	activity.IsCustom = true

	var id, created string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO custom_activities (id, name, scores, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET scores = excluded.scores, updated_at = excluded.updated_at
		 RETURNING id, created_at`,
		activity.ID, activity.Name, scores, formatTime(activity.CreatedAt), formatTime(now)).Scan(&id, &created)
	if err != nil {
		return fmt.Errorf("sqlite: save custom activity %q: %w", activity.Name, err)
	}
	activity.ID = id
	activity.CreatedAt = parseTime(created)
	return nil
}

// ListCustomActivities implements storage.CustomActivityStore.
func (s *Store) ListCustomActivities(ctx context.Context) ([]types.Activity, error) {
	return s.queryActivities(ctx, true,
		`SELECT id, name, scores, created_at, updated_at FROM custom_activities ORDER BY seq`)
}

// DeleteCustomActivity implements storage.CustomActivityStore.
func (s *Store) DeleteCustomActivity(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_activities WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("sqlite: delete custom activity %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete custom activity %q: %w", name, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ---- overrides ----

// SetOverride implements storage.OverrideStore.
func (s *Store) SetOverride(ctx context.Context, activityName, key string, value float64) error {
	if err := storage.ValidateOverride(activityName, key, value); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO taxonomy_edits (activity_name, dimension_key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(activity_name, dimension_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		activityName, key, value, formatTime(s.now().UTC()))
	if err != nil {
		return fmt.Errorf("sqlite: set override %s/%s: %w", activityName, key, err)
	}
	return nil
}

// LoadOverrides implements storage.OverrideStore.
func (s *Store) LoadOverrides(ctx context.Context) (types.Overrides, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_name, dimension_key, value FROM taxonomy_edits`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load overrides: %w", err)
	}
	defer rows.Close()

	out := types.Overrides{}
	for rows.Next() {
		var name, key string
		var value float64
		if err := rows.Scan(&name, &key, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scan override: %w", err)
		}
		if out[name] == nil {
			out[name] = map[string]float64{}
		}
		out[name][key] = value
	}
	return out, rows.Err()
}

// ClearOverrides implements storage.OverrideStore.
func (s *Store) ClearOverrides(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM taxonomy_edits`); err != nil {
		return fmt.Errorf("sqlite: clear overrides: %w", err)
	}
	return nil
}

// ---- helpers ----

func (s *Store) queryActivities(ctx context.Context, custom bool, query string, args ...interface{}) ([]types.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query activities: %w", err)
	}
	defer rows.Close()

	out := []types.Activity{}
	for rows.Next() {
		var (
			a                types.Activity
			scores           string
			created, updated string
		)
		if err := rows.Scan(&a.ID, &a.Name, &scores, &created, &updated); err != nil {
			return nil, fmt.Errorf("sqlite: scan activity: %w", err)
		}
		if err := json.Unmarshal([]byte(scores), &a.Scores); err != nil {
			return nil, fmt.Errorf("sqlite: decode scores of %q: %w", a.Name, err)
		}
		if a.Scores == nil {
			a.Scores = types.Scores{}
		}
		a.CreatedAt = parseTime(created)
		a.UpdatedAt = parseTime(updated)
		a.IsCustom = custom
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func validateDimensions(dims []types.Dimension) error {
	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if strings.TrimSpace(d.Key) == "" {
			return fmt.Errorf("%w: dimension key is required", storage.ErrInvalidInput)
		}
		if seen[d.Key] {
			return fmt.Errorf("%w: duplicate dimension key %q", storage.ErrInvalidInput, d.Key)
		}
		seen[d.Key] = true
	}
	return nil
}

func validateBatch(activities []types.Activity) error {
	seen := make(map[string]bool, len(activities))
	for i := range activities {
		if err := storage.ValidateActivity(&activities[i]); err != nil {
			return err
		}
		if seen[activities[i].Name] {
			return fmt.Errorf("%w: duplicate activity name %q", storage.ErrInvalidInput, activities[i].Name)
		}
		seen[activities[i].Name] = true
	}
	return nil
}

func encodeScores(s types.Scores) (string, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("%w: encode scores: %v", storage.ErrInvalidInput, err)
	}
	return string(b), nil
}

// jsonPath quotes key so dimension keys with dots or spaces address a single
// member.
func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
