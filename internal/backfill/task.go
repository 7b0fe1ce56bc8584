// Package backfill implements the backfill controller (C3, §4.3): scheduled
// forward/backward vendor replay into the archive, bounded by a global
// download permit and deduplicated by a task registry keyed on
// (symbol, resolution, data-type).
package backfill

import (
	"sync"
	"time"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// taskKey is the triple the controller dedups concurrent task starts on.
type taskKey struct {
	Symbol     string
	Resolution basedata.Resolution
	DataType   basedata.BaseDataType
}

func keyFor(sym basedata.Symbol, res basedata.Resolution, dt basedata.BaseDataType) taskKey {
	return taskKey{Symbol: sym.Name, Resolution: res, DataType: dt}
}

// handle tracks one live (or just-finished) task so PreSubscribe callers
// and the periodic reap sweep can observe its completion.
type handle struct {
	done     chan struct{}
	finished bool
	err      error
}

// registry is the controller's in-memory task table. A nil *catalog mirror
// passed to Controller is fine — the registry works standalone; the
// catalog mirror is an optional persisted shadow for restart visibility.
type registry struct {
	mu    sync.Mutex
	tasks map[taskKey]*handle
}

func newRegistry() *registry {
	return &registry{tasks: make(map[taskKey]*handle)}
}

// start registers key as running, or returns the existing handle if a task
// for key is already live (ok=false tells the caller not to run it).
func (r *registry) start(key taskKey) (h *handle, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, live := r.tasks[key]; live && !existing.finished {
		return existing, false
	}
	h = &handle{done: make(chan struct{})}
	r.tasks[key] = h
	return h, true
}

// finish marks key's task complete and wakes anyone waiting on its handle.
func (r *registry) finish(key taskKey, h *handle, taskErr error) {
	r.mu.Lock()
	h.finished = true
	h.err = taskErr
	r.mu.Unlock()
	close(h.done)
}

// reapSweep drops every finished handle from the table, run periodically so
// the registry doesn't grow without bound across a long-lived process.
func (r *registry) reapSweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, h := range r.tasks {
		if h.finished {
			delete(r.tasks, k)
		}
	}
}

// clear aborts every live task's bookkeeping entry on shutdown. It does not
// itself cancel running goroutines — callers cancel the context their tasks
// share, and that unwinding calls finish on each handle in turn; clear is
// the final sweep once all of those have settled.
func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = make(map[taskKey]*handle)
}

func (r *registry) runningKeys() []taskKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]taskKey, 0, len(r.tasks))
	for k, h := range r.tasks {
		if !h.finished {
			out = append(out, k)
		}
	}
	return out
}

// heartbeatGapTimeout clamps a vendor's measured heartbeat latency to the
// [200ms, 1s] window §4.3 specifies for the per-window drain's message-gap
// timeout.
func heartbeatGapTimeout(measured time.Duration) time.Duration {
	const min, max = 200 * time.Millisecond, 1 * time.Second
	if measured < min {
		return min
	}
	if measured > max {
		return max
	}
	return measured
}
