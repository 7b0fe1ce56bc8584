package archive

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// pathLockTable hands out a semaphore of weight 1 per archive file path,
// serializing writers to the same file per §5 ("Archive writes acquire a
// per-path write permit... the ONLY place file state is mutated"). Idle
// entries are garbage-collected by gcIdle so a long-running archive with
// many symbols doesn't accumulate one semaphore per path forever.
type pathLockTable struct {
	mu      sync.Mutex
	entries map[string]*pathLockEntry
}

type pathLockEntry struct {
	sem        *semaphore.Weighted
	lastAcquire time.Time
	inUse      int
}

func newPathLockTable() *pathLockTable {
	return &pathLockTable{entries: make(map[string]*pathLockEntry)}
}

// acquire blocks until path's write permit is free, then returns a release
// function. Safe to call concurrently for distinct paths.
func (t *pathLockTable) acquire(ctx context.Context, path string) (func(), error) {
	t.mu.Lock()
	e, ok := t.entries[path]
	if !ok {
		e = &pathLockEntry{sem: semaphore.NewWeighted(1)}
		t.entries[path] = e
	}
	e.inUse++
	t.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		t.mu.Lock()
		e.inUse--
		t.mu.Unlock()
		return nil, err
	}

	t.mu.Lock()
	e.lastAcquire = time.Now()
	t.mu.Unlock()

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		e.sem.Release(1)
		t.mu.Lock()
		e.inUse--
		t.mu.Unlock()
	}
	return release, nil
}

// gcIdle removes entries with no waiters/holders that haven't been touched
// in idleAfter. Called by Store's background sweep alongside hotCache
// eviction, per §4.2's "garbage-collects idle semaphores".
func (t *pathLockTable) gcIdle(idleAfter time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-idleAfter)
	for path, e := range t.entries {
		if e.inUse == 0 && e.lastAcquire.Before(cutoff) {
			delete(t.entries, path)
		}
	}
}
