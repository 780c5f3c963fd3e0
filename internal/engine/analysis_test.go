package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/activity-architect/internal/engine"
	"github.com/scrypster/activity-architect/internal/overrides"
	"github.com/scrypster/activity-architect/pkg/types"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		delta float64
		want  engine.Band
	}{
		{0, engine.BandClose},
		{1, engine.BandClose},
		{1.01, engine.BandMedium},
		{2, engine.BandMedium},
		{2.5, engine.BandFar},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, engine.BandFor(tt.delta), "delta %v", tt.delta)
	}
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "5.0", engine.FormatScore(5))
	assert.Equal(t, "7.3", engine.FormatScore(7.25000001))
	assert.Equal(t, "10.0", engine.FormatScore(10))
}

func TestAnalyze_SplitsFilteredAndOther(t *testing.T) {
	layer := overrides.New()
	m := engine.NewMatcher(testDimensions(), layer)
	a := types.Activity{Name: "Chess", Scores: types.Scores{"flow": 7, "risk": 2, "cost": 1}}
	layer.Set("Chess", "cost", 3)

	target := types.TargetVector{"flow": 8, "risk": 6, "cost": 3}
	got := m.Analyze(a, target)

	assert.Equal(t, "Chess", got.Activity)
	require.Len(t, got.Filtered, 3)
	assert.Equal(t, "cost", got.Filtered[0].Key)
	assert.Equal(t, 0.0, got.Filtered[0].Delta)
	assert.True(t, got.Filtered[0].Edited)
	assert.Equal(t, 3.0, got.Filtered[0].Value)

	assert.Equal(t, "flow", got.Filtered[1].Key)
	assert.Equal(t, "Flow Accessibility", got.Filtered[1].Label)
	assert.Equal(t, 8.0, got.Filtered[1].Target)
	assert.Equal(t, 1.0, got.Filtered[1].Delta)
	assert.Equal(t, engine.BandClose, got.Filtered[1].Band)
	assert.False(t, got.Filtered[1].Edited)

	assert.Equal(t, "risk", got.Filtered[2].Key)
	assert.Equal(t, 4.0, got.Filtered[2].Delta)
	assert.Equal(t, engine.BandFar, got.Filtered[2].Band)

	require.Len(t, got.Other, 1)
	assert.Equal(t, "mastery", got.Other[0].Key)
	assert.Equal(t, types.NeutralScore, got.Other[0].Value)
	assert.Zero(t, got.Other[0].Delta)
	assert.True(t, got.WithinTolerance)
}

func TestAnalyzeWithin(t *testing.T) {
	m := engine.NewMatcher(testDimensions(), nil)
	a := types.Activity{Name: "Chess", Scores: types.Scores{"flow": 7, "risk": 2}}

	assert.True(t, m.AnalyzeWithin(a, types.TargetVector{"flow": 8}, 1).WithinTolerance)
	assert.False(t, m.AnalyzeWithin(a, types.TargetVector{"flow": 8, "risk": 5}, 1).WithinTolerance)
}

func TestAnalyze_NoTargets(t *testing.T) {
	m := engine.NewMatcher(testDimensions(), nil)
	got := m.Analyze(types.Activity{Name: "Empty"}, nil)

	assert.Empty(t, got.Filtered)
	require.Len(t, got.Other, 4)
	assert.Equal(t, []string{"flow", "risk", "mastery", "cost"}, []string{
		got.Other[0].Key, got.Other[1].Key, got.Other[2].Key, got.Other[3].Key,
	})
}
