package backfill

import (
	"testing"
	"time"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

func testKey() taskKey {
	sym := basedata.Symbol{Name: "ES"}
	res := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}
	return keyFor(sym, res, basedata.DataTypeCandle)
}

func TestRegistryDedupsConcurrentStart(t *testing.T) {
	r := newRegistry()
	key := testKey()

	_, ok := r.start(key)
	if !ok {
		t.Fatal("first start should succeed")
	}

	h2, ok2 := r.start(key)
	if ok2 {
		t.Fatal("second start for a live key should return ok=false")
	}
	if h2 == nil {
		t.Fatal("second start should return the existing handle")
	}
}

func TestRegistryStartAfterFinishSucceeds(t *testing.T) {
	r := newRegistry()
	key := testKey()

	h, _ := r.start(key)
	r.finish(key, h, nil)

	_, ok := r.start(key)
	if !ok {
		t.Fatal("start after finish should succeed")
	}
}

func TestRegistryFinishWakesWaiters(t *testing.T) {
	r := newRegistry()
	key := testKey()
	h, _ := r.start(key)

	done := make(chan struct{})
	go func() {
		<-h.done
		close(done)
	}()

	r.finish(key, h, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken on finish")
	}
}

func TestReapSweepDropsOnlyFinished(t *testing.T) {
	r := newRegistry()
	liveKey := testKey()
	doneKey := keyFor(basedata.Symbol{Name: "NQ"}, basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}, basedata.DataTypeCandle)

	r.start(liveKey)
	h, _ := r.start(doneKey)
	r.finish(doneKey, h, nil)

	r.reapSweep()

	r.mu.Lock()
	_, liveStillThere := r.tasks[liveKey]
	_, doneStillThere := r.tasks[doneKey]
	r.mu.Unlock()

	if !liveStillThere {
		t.Error("reapSweep dropped a still-live task")
	}
	if doneStillThere {
		t.Error("reapSweep left a finished task in the table")
	}
}

func TestClearEmptiesRegistry(t *testing.T) {
	r := newRegistry()
	r.start(testKey())
	r.clear()
	if len(r.runningKeys()) != 0 {
		t.Fatal("clear should empty the registry")
	}
}
