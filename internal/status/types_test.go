package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationStatus_Transitions(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var s LocationStatus

	s.MarkRefreshing(start)
	assert.Equal(t, RefreshPhaseRefreshing, s.Phase)
	require.NotNil(t, s.LastAttempt)
	assert.Equal(t, start, *s.LastAttempt)

	s.MarkFailed("No valid data found", 2)
	s.MarkFailed("No valid data found", 2)
	assert.Equal(t, RefreshPhaseFailed, s.Phase)
	assert.Equal(t, 2, s.AttemptCount)
	assert.Nil(t, s.LastRefreshTime)

	done := start.Add(time.Second)
	s.MarkComplete(done, 4, 1)
	assert.Equal(t, RefreshPhaseComplete, s.Phase)
	assert.Empty(t, s.Message)
	assert.Zero(t, s.AttemptCount)
	assert.Equal(t, 4, s.ComponentCount)
	assert.Equal(t, 1, s.ErrorCount)
	require.NotNil(t, s.LastRefreshTime)

	s.MarkFailed("boom", 0)
	require.NotNil(t, s.LastRefreshTime, "last successful refresh is kept after a failure")
	assert.Equal(t, done, *s.LastRefreshTime)
}
