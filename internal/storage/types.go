package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scrypster/activity-architect/pkg/types"
)

// Common storage errors
var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates the backend is failing and calls are being
	// rejected without reaching it.
	ErrUnavailable = errors.New("store unavailable")
)

// ValidateOverride checks the arguments of OverrideStore.SetOverride.
func ValidateOverride(activityName, key string, value float64) error {
	if strings.TrimSpace(activityName) == "" {
		return fmt.Errorf("%w: activity name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: dimension key is required", ErrInvalidInput)
	}
	if err := types.ValidateScore(value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ValidateActivity wraps types.ValidateActivity with ErrInvalidInput.
func ValidateActivity(a *types.Activity) error {
	if err := types.ValidateActivity(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ValidateRange checks the arguments of QueryActivitiesByDimension.
func ValidateRange(key string, min, max float64) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: dimension key is required", ErrInvalidInput)
	}
	if min > max {
		return fmt.Errorf("%w: min %.2f greater than max %.2f", ErrInvalidInput, min, max)
	}
	return nil
}
