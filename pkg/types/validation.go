package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidScore indicates a score outside [MinScore, MaxScore] or NaN.
	ErrInvalidScore = errors.New("invalid score")

	// ErrInvalidTolerance indicates a tolerance outside [MinTolerance, MaxTolerance].
	ErrInvalidTolerance = errors.New("invalid tolerance")

	// ErrInvalidActivity indicates an activity that cannot be saved.
	ErrInvalidActivity = errors.New("invalid activity")
)

// The validators below are for components that collect user input. The
// matching engine and the override layer compute with whatever they are given.

// ValidateScore checks that v is a finite value in [MinScore, MaxScore].
func ValidateScore(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v is not a finite number", ErrInvalidScore, v)
	}
	if v < MinScore || v > MaxScore {
		return fmt.Errorf("%w: %.2f outside [%.0f, %.0f]", ErrInvalidScore, v, MinScore, MaxScore)
	}
	return nil
}

// ValidateTolerance checks that t lies in [MinTolerance, MaxTolerance].
func ValidateTolerance(t float64) error {
	if math.IsNaN(t) || t < MinTolerance || t > MaxTolerance {
		return fmt.Errorf("%w: %.2f outside [%.1f, %.1f]", ErrInvalidTolerance, t, MinTolerance, MaxTolerance)
	}
	return nil
}

// ValidateTargets checks every value of a target vector.
func ValidateTargets(t TargetVector) error {
	for key, v := range t {
		if err := ValidateScore(v); err != nil {
			return fmt.Errorf("target %q: %w", key, err)
		}
	}
	return nil
}

// ValidateActivity checks that a is fit to be saved: a non-blank name and
// every score inside the domain.
func ValidateActivity(a *Activity) error {
	if a == nil {
		return fmt.Errorf("%w: activity is nil", ErrInvalidActivity)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidActivity)
	}
	for key, v := range a.Scores {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: empty dimension key", ErrInvalidActivity)
		}
		if err := ValidateScore(v); err != nil {
			return fmt.Errorf("%w: dimension %q: %v", ErrInvalidActivity, key, err)
		}
	}
	return nil
}
