package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/metrics"
	"github.com/scrypster/activity-architect/pkg/types"
)

// BreakerConfig holds the configuration for the store circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that trips the circuit.
	// Default: 3
	MaxFailures uint32

	// Timeout is how long the circuit stays open before letting a trial call through.
	// Default: 30 seconds
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of trial calls allowed while half-open.
	// Default: 1
	HalfOpenMaxSuccesses uint32
}

// DefaultBreakerConfig returns MaxFailures 3, Timeout 30s, one half-open trial call.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 1,
	}
}

// Breaker decorates a Store with a gobreaker circuit. Once the backend has
// failed MaxFailures times in a row, calls fail fast with ErrUnavailable
// until Timeout elapses. Caller errors (ErrNotFound, ErrInvalidInput,
// context cancellation) never count as backend failures.
type Breaker struct {
	next    Store
	breaker *gobreaker.CircuitBreaker
}

var _ Store = (*Breaker)(nil)

// NewBreaker wraps next. Zero config fields take their defaults.
func NewBreaker(next Store, config BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if config.MaxFailures == 0 {
		config.MaxFailures = def.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.HalfOpenMaxSuccesses == 0 {
		config.HalfOpenMaxSuccesses = def.HalfOpenMaxSuccesses
	}

	settings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: config.HalfOpenMaxSuccesses,
		Interval:    0,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		IsSuccessful: isCallerError,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("store circuit breaker changed state")
		},
	}

	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// isCallerError reports errors that say nothing about backend health.
func isCallerError(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, context.Canceled)
}

// State returns "closed", "half-open" or "open".
func (b *Breaker) State() string {
	return b.breaker.State().String()
}

func (b *Breaker) do(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	metrics.RecordStoreOperation(op, err)
	return result, err
}

func (b *Breaker) exec(op string, fn func() error) error {
	_, err := b.do(op, func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// ListDimensions implements CatalogStore.
func (b *Breaker) ListDimensions(ctx context.Context) (types.DimensionCatalog, error) {
	res, err := b.do("list_dimensions", func() (interface{}, error) {
		return b.next.ListDimensions(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(types.DimensionCatalog), nil
}

// ListActivities implements CatalogStore.
func (b *Breaker) ListActivities(ctx context.Context) ([]types.Activity, error) {
	return b.activities("list_activities", func() ([]types.Activity, error) {
		return b.next.ListActivities(ctx)
	})
}

// ReplaceCatalog implements CatalogStore.
func (b *Breaker) ReplaceCatalog(ctx context.Context, dims []types.Dimension, activities []types.Activity, batchSize int) error {
	return b.exec("replace_catalog", func() error {
		return b.next.ReplaceCatalog(ctx, dims, activities, batchSize)
	})
}

// QueryActivitiesByDimension implements CatalogStore.
func (b *Breaker) QueryActivitiesByDimension(ctx context.Context, key string, min, max float64) ([]types.Activity, error) {
	return b.activities("query_by_dimension", func() ([]types.Activity, error) {
		return b.next.QueryActivitiesByDimension(ctx, key, min, max)
	})
}

// SaveCustomActivity implements CustomActivityStore.
func (b *Breaker) SaveCustomActivity(ctx context.Context, activity *types.Activity) error {
	return b.exec("save_custom_activity", func() error {
		return b.next.SaveCustomActivity(ctx, activity)
	})
}

// ListCustomActivities implements CustomActivityStore.
func (b *Breaker) ListCustomActivities(ctx context.Context) ([]types.Activity, error) {
	return b.activities("list_custom_activities", func() ([]types.Activity, error) {
		return b.next.ListCustomActivities(ctx)
	})
}

// DeleteCustomActivity implements CustomActivityStore.
func (b *Breaker) DeleteCustomActivity(ctx context.Context, name string) error {
	return b.exec("delete_custom_activity", func() error {
		return b.next.DeleteCustomActivity(ctx, name)
	})
}

// SetOverride implements OverrideStore.
func (b *Breaker) SetOverride(ctx context.Context, activityName, key string, value float64) error {
	return b.exec("set_override", func() error {
		return b.next.SetOverride(ctx, activityName, key, value)
	})
}

// LoadOverrides implements OverrideStore.
func (b *Breaker) LoadOverrides(ctx context.Context) (types.Overrides, error) {
	res, err := b.do("load_overrides", func() (interface{}, error) {
		return b.next.LoadOverrides(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(types.Overrides), nil
}

// ClearOverrides implements OverrideStore.
func (b *Breaker) ClearOverrides(ctx context.Context) error {
	return b.exec("clear_overrides", func() error {
		return b.next.ClearOverrides(ctx)
	})
}

// Close closes the wrapped store directly.
func (b *Breaker) Close() error {
	return b.next.Close()
}

func (b *Breaker) activities(op string, fn func() ([]types.Activity, error)) ([]types.Activity, error) {
	res, err := b.do(op, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return res.([]types.Activity), nil
}
