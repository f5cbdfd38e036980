package services

import (
	"context"
	"sync"
	"time"

	"github.com/neonarc/neonarc/internal/core/domain"
)

// Lock acquisition backoff. Contention on one path is short-lived (the
// other worker is mid-pipeline), so a handful of growing waits covers
// the realistic window before giving up with ErrConcurrentModification.
const (
	lockAttempts       = 5
	lockInitialBackoff = 50 * time.Millisecond
)

// pathLocks serialises pipeline runs per path. Different paths proceed
// in parallel; two workers on the same path never interleave their
// read-modify-write cycles.
type pathLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newPathLocks() *pathLocks {
	return &pathLocks{held: make(map[string]struct{})}
}

// tryLock acquires the lock for path if it is free.
func (l *pathLocks) tryLock(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[path]; taken {
		return false
	}
	l.held[path] = struct{}{}
	return true
}

// unlock releases the lock for path.
func (l *pathLocks) unlock(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, path)
}

// acquire takes the lock for path, retrying with exponential backoff.
// After the attempts are exhausted it returns ErrConcurrentModification
// so the caller surfaces the contention instead of silently dropping it.
func (l *pathLocks) acquire(ctx context.Context, path string) error {
	backoff := lockInitialBackoff
	for attempt := 0; attempt < lockAttempts; attempt++ {
		if l.tryLock(path) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return domain.ErrConcurrentModification
}
