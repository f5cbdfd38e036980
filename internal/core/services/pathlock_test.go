package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonarc/neonarc/internal/core/domain"
)

func TestPathLocks_AcquireAndRelease(t *testing.T) {
	locks := newPathLocks()
	ctx := context.Background()

	require.NoError(t, locks.acquire(ctx, "/a"))
	require.NoError(t, locks.acquire(ctx, "/b")) // different path, no contention
	locks.unlock("/a")
	require.NoError(t, locks.acquire(ctx, "/a")) // reacquire after release
	locks.unlock("/a")
	locks.unlock("/b")
}

func TestPathLocks_ContentionGivesUp(t *testing.T) {
	locks := newPathLocks()
	ctx := context.Background()

	require.NoError(t, locks.acquire(ctx, "/contended"))
	defer locks.unlock("/contended")

	err := locks.acquire(ctx, "/contended")
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestPathLocks_RetriesUntilHolderReleases(t *testing.T) {
	locks := newPathLocks()
	ctx := context.Background()

	require.NoError(t, locks.acquire(ctx, "/shared"))
	go func() {
		time.Sleep(60 * time.Millisecond)
		locks.unlock("/shared")
	}()

	// Backoff retries long enough to outlive the holder.
	require.NoError(t, locks.acquire(ctx, "/shared"))
	locks.unlock("/shared")
}

func TestPathLocks_ContextCancellation(t *testing.T) {
	locks := newPathLocks()
	require.NoError(t, locks.acquire(context.Background(), "/held"))
	defer locks.unlock("/held")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := locks.acquire(ctx, "/held")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
