// Package session holds the state of one exploration session: the target
// vector, the tolerance, taxonomy edits and custom activities. It glues the
// matching engine to the durable store.
//
// A Session serializes every method with a mutex, so one value can back a
// concurrent HTTP server.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/scrypster/activity-architect/internal/catalog"
	"github.com/scrypster/activity-architect/internal/engine"
	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/metrics"
	"github.com/scrypster/activity-architect/internal/overrides"
	"github.com/scrypster/activity-architect/internal/storage"
	"github.com/scrypster/activity-architect/pkg/types"
)

var (
	// ErrActivityNotFound is returned for a name that is neither in the
	// catalog nor among the custom activities.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrUnknownDimension is returned for a key the catalog does not define.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrDuplicateActivity is returned when a new activity reuses a name.
	ErrDuplicateActivity = errors.New("activity already exists")

	// ErrNotPersisted wraps store failures for changes that were applied in
	// memory anyway.
	ErrNotPersisted = errors.New("change applied but not persisted")
)

// Store is the part of the durable store a session writes to. A nil Store
// keeps the session purely in memory.
type Store interface {
	storage.CustomActivityStore
	storage.OverrideStore
}

// Options configures a Session.
type Options struct {
	// Tolerance is the starting tolerance. Zero means types.DefaultTolerance.
	Tolerance float64

	// Now stamps new activities. Defaults to time.Now.
	Now func() time.Time
}

// Session is the mutable state behind one user's exploration.
type Session struct {
	mu        sync.Mutex
	catalog   *catalog.Catalog
	store     Store
	layer     *overrides.Layer
	custom    []types.Activity
	targets   types.TargetVector
	tolerance float64
	now       func() time.Time
}

// Draft is a new-activity form pre-filled from the current targets.
type Draft struct {
	Name   string       `json:"name"`
	Scores types.Scores `json:"scores"`
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	Targets   types.TargetVector `json:"targets"`
	Tolerance float64            `json:"tolerance"`
	Edits     int                `json:"edits"`
	Custom    int                `json:"custom_activities"`
	Result    engine.Result      `json:"result"`
}

// New creates a session over c and restores custom activities and taxonomy
// edits from store.
func New(ctx context.Context, c *catalog.Catalog, store Store, opts Options) (*Session, error) {
	if c == nil {
		c = &catalog.Catalog{}
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = types.DefaultTolerance
	}
	if err := types.ValidateTolerance(opts.Tolerance); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		catalog:   c,
		store:     store,
		layer:     overrides.New(),
		targets:   types.TargetVector{},
		tolerance: opts.Tolerance,
		now:       opts.Now,
	}

	if store == nil {
		return s, nil
	}

	custom, err := store.ListCustomActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: load custom activities: %w", err)
	}
	edits, err := store.LoadOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: load taxonomy edits: %w", err)
	}
	s.custom = custom
	s.layer.Load(edits)

	logging.Info().
		Int("custom_activities", len(custom)).
		Int("edits", s.layer.Len()).
		Msg("session restored")
	return s, nil
}

// ---- catalog ----

// Dimensions returns the dimension catalog in display order.
func (s *Session) Dimensions() types.DimensionCatalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Dimensions
}

// SetCatalog swaps in a reloaded catalog. Targets, edits and custom
// activities are kept; keys that no longer exist are ignored by matching.
func (s *Session) SetCatalog(c *catalog.Catalog) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
	metrics.SetCatalogSize(len(c.Dimensions), len(c.Activities)+len(s.custom))
}

// Activities returns catalog activities followed by custom activities, with
// raw scores.
func (s *Session) Activities() []types.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities()
}

// EffectiveActivities is Activities with every catalog dimension resolved
// through the taxonomy edits.
func (s *Session) EffectiveActivities() []types.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.catalog.Dimensions.Keys()
	all := s.activities()
	out := make([]types.Activity, len(all))
	for i, a := range all {
		out[i] = s.layer.Effective(a, keys)
	}
	return out
}

func (s *Session) activities() []types.Activity {
	out := make([]types.Activity, 0, len(s.catalog.Activities)+len(s.custom))
	out = append(out, s.catalog.Activities...)
	out = append(out, s.custom...)
	return out
}

func (s *Session) find(name string) (types.Activity, bool) {
	if a, ok := s.catalog.Activity(name); ok {
		return a, true
	}
	for _, a := range s.custom {
		if a.Name == name {
			return a, true
		}
	}
	return types.Activity{}, false
}

func (s *Session) matcher() engine.Matcher {
	return engine.NewMatcher(s.catalog.Dimensions, s.layer)
}

// ---- targets and tolerance ----

// SetTarget sets the target for key. Zero deactivates the dimension.
func (s *Session) SetTarget(key string, value float64) error {
	if err := types.ValidateScore(value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.catalog.Dimensions.Has(key) {
		return fmt.Errorf("%w: %q", ErrUnknownDimension, key)
	}
	if value == 0 {
		delete(s.targets, key)
		return nil
	}
	s.targets[key] = value
	return nil
}

// Targets returns a copy of the target vector.
func (s *Session) Targets() types.TargetVector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets.Clone()
}

// ResetTargets deactivates every dimension.
func (s *Session) ResetTargets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = types.TargetVector{}
}

// SetTolerance changes the tolerance used by Results and Analyze.
func (s *Session) SetTolerance(t float64) error {
	if err := types.ValidateTolerance(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tolerance = t
	return nil
}

// Tolerance returns the current tolerance.
func (s *Session) Tolerance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tolerance
}

// ---- queries ----

// Results runs the current targets and tolerance against every activity.
func (s *Session) Results() engine.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(s.targets, s.tolerance)
}

// Match runs an ad hoc query that leaves the session's targets untouched.
// Taxonomy edits still apply.
func (s *Session) Match(targets types.TargetVector, tolerance float64) engine.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(targets, tolerance)
}

// query matches on effective scores and returns the matches with those
// scores filled in, so a result never shows a value the match did not use.
func (s *Session) query(targets types.TargetVector, tolerance float64) engine.Result {
	start := time.Now()
	res := s.matcher().Query(s.activities(), targets, tolerance)
	metrics.RecordMatch(string(res.State), len(res.Activities), time.Since(start))

	keys := s.catalog.Dimensions.Keys()
	effective := make([]types.Activity, len(res.Activities))
	for i, a := range res.Activities {
		effective[i] = s.layer.Effective(a, keys)
	}
	res.Activities = effective
	return res
}

// Analyze compares the named activity with the current targets.
func (s *Session) Analyze(name string) (engine.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyze(name, s.targets, s.tolerance)
}

// AnalyzeWith compares the named activity with explicit targets.
func (s *Session) AnalyzeWith(name string, targets types.TargetVector, tolerance float64) (engine.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyze(name, targets, tolerance)
}

func (s *Session) analyze(name string, targets types.TargetVector, tolerance float64) (engine.Analysis, error) {
	a, ok := s.find(name)
	if !ok {
		return engine.Analysis{}, fmt.Errorf("%w: %q", ErrActivityNotFound, name)
	}
	return s.matcher().AnalyzeWithin(a, targets, tolerance), nil
}

// Snapshot returns the targets, tolerance and current result together.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Targets:   s.targets.Clone(),
		Tolerance: s.tolerance,
		Edits:     s.layer.Len(),
		Custom:    len(s.custom),
		Result:    s.query(s.targets, s.tolerance),
	}
}

// ---- taxonomy edits ----

// Edit overrides one dimension of an activity and persists the change. The
// in-memory edit takes effect even if persisting fails; the store error is
// returned wrapped in ErrNotPersisted.
func (s *Session) Edit(ctx context.Context, name, key string, value float64) error {
	if err := types.ValidateScore(value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(name); !ok {
		return fmt.Errorf("%w: %q", ErrActivityNotFound, name)
	}
	if !s.catalog.Dimensions.Has(key) {
		return fmt.Errorf("%w: %q", ErrUnknownDimension, key)
	}

	s.layer.Set(name, key, value)
	metrics.OverrideEdits.Inc()

	if s.store == nil {
		return nil
	}
	if err := s.store.SetOverride(ctx, name, key, value); err != nil {
		logging.Error().Err(err).Str("activity", name).Str("dimension", key).Msg("failed to persist taxonomy edit")
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// IsEdited reports whether a dimension of an activity is overridden.
func (s *Session) IsEdited(name, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layer.IsEdited(name, key)
}

// Edits returns a copy of every taxonomy edit.
func (s *Session) Edits() types.Overrides {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layer.Snapshot()
}

// ResetEdits drops every taxonomy edit in memory and in the store.
func (s *Session) ResetEdits(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.layer.ClearAll()
	metrics.OverrideResets.Inc()

	if s.store == nil {
		return nil
	}
	if err := s.store.ClearOverrides(ctx); err != nil {
		logging.Error().Err(err).Msg("failed to clear persisted taxonomy edits")
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// ---- custom activities ----

// Draft returns a new-activity form: active target values where set, the
// neutral score elsewhere.
func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftFor(s.targets)
}

// DraftFor is Draft for an explicit target vector.
func (s *Session) DraftFor(targets types.TargetVector) Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftFor(targets)
}

func (s *Session) draftFor(targets types.TargetVector) Draft {
	scores := make(types.Scores, len(s.catalog.Dimensions))
	for _, d := range s.catalog.Dimensions {
		if targets.IsActive(d.Key) {
			scores[d.Key] = targets[d.Key]
		} else {
			scores[d.Key] = types.NeutralScore
		}
	}
	return Draft{Scores: scores}
}

// AddActivity validates and appends a custom activity, then persists it.
// Names are trimmed and must be unique across catalog and custom
// activities. The activity is kept in memory even if persisting fails.
func (s *Session) AddActivity(ctx context.Context, name string, scores types.Scores) (types.Activity, error) {
	a := types.Activity{
		Name:     strings.TrimSpace(name),
		Scores:   scores.Clone(),
		IsCustom: true,
	}
	if a.Scores == nil {
		a.Scores = types.Scores{}
	}
	if err := types.ValidateActivity(&a); err != nil {
		return types.Activity{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.find(a.Name); exists {
		return types.Activity{}, fmt.Errorf("%w: %q", ErrDuplicateActivity, a.Name)
	}

	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt

	var persistErr error
	if s.store != nil {
		if err := s.store.SaveCustomActivity(ctx, &a); err != nil {
			logging.Error().Err(err).Str("activity", a.Name).Msg("failed to persist custom activity")
			persistErr = fmt.Errorf("%w: %w", ErrNotPersisted, err)
		}
	}

	s.custom = append(s.custom, a)
	metrics.CustomActivities.Inc()
	return a, persistErr
}

// CustomActivities returns the custom activities in creation order.
func (s *Session) CustomActivities() []types.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Activity, len(s.custom))
	copy(out, s.custom)
	return out
}
