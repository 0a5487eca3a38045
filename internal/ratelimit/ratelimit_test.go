package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/requestcontext"
)

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func TestLimiterBlocksAtThreshold(t *testing.T) {
	l := New(NewInMemory(), WithMaxAttempts(3), WithWindow(15*time.Minute))
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow(at(now), "1.2.3.4"))
		require.NoError(t, l.RecordFailure(at(now), "1.2.3.4"))
		now = now.Add(time.Minute)
	}

	err := l.Allow(at(now), "1.2.3.4")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestLimiterWindowSlides(t *testing.T) {
	l := New(NewInMemory(), WithMaxAttempts(2), WithWindow(15*time.Minute))
	start := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordFailure(at(start), "1.2.3.4"))
	require.NoError(t, l.RecordFailure(at(start.Add(time.Minute)), "1.2.3.4"))
	assert.Error(t, l.Allow(at(start.Add(2*time.Minute)), "1.2.3.4"))

	// The first failure falls out of the window; one slot frees up.
	assert.NoError(t, l.Allow(at(start.Add(15*time.Minute+time.Second)), "1.2.3.4"))
}

func TestLimiterSuccessClearsWindow(t *testing.T) {
	l := New(NewInMemory(), WithMaxAttempts(2), WithWindow(15*time.Minute))
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordFailure(at(now), "1.2.3.4"))
	require.NoError(t, l.RecordFailure(at(now), "1.2.3.4"))
	require.Error(t, l.Allow(at(now), "1.2.3.4"))

	require.NoError(t, l.RecordSuccess(at(now), "1.2.3.4"))
	assert.NoError(t, l.Allow(at(now), "1.2.3.4"))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := New(NewInMemory(), WithMaxAttempts(1), WithWindow(15*time.Minute))
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.RecordFailure(at(now), "1.2.3.4"))
	assert.Error(t, l.Allow(at(now), "1.2.3.4"))
	assert.NoError(t, l.Allow(at(now), "5.6.7.8"))
}
