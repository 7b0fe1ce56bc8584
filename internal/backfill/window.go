package backfill

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/vendoradapter"
)

// windowSize picks §4.3's per-resolution replay window: 4 hours for
// sub-second data, proportionally larger for coarser resolutions so a
// multi-year daily backfill doesn't take one window per day.
func windowSize(res basedata.Resolution) time.Duration {
	switch res.Kind {
	case basedata.ResolutionTicks, basedata.ResolutionSeconds:
		return 4 * time.Hour
	case basedata.ResolutionMinutes:
		return 24 * time.Hour
	case basedata.ResolutionHours:
		return 7 * 24 * time.Hour
	default: // Days, Renko
		return 90 * 24 * time.Hour
	}
}

type windowOutcome struct {
	result vendoradapter.HistoricalResult
	err    error
}

// drainWindow sends one replay request for req's window and drains the
// adapter's output channel until either the adapter reports completion or
// no datum arrives within gapTimeout (§4.3 step 2's message-gap timeout).
func drainWindow(ctx context.Context, adapter vendoradapter.VendorAdapter, req vendoradapter.HistoricalRequest, gapTimeout time.Duration) ([]basedata.BaseDatum, error) {
	dataCh := make(chan basedata.BaseDatum, 256)
	resultCh := make(chan windowOutcome, 1)

	go func() {
		res, err := adapter.UpdateHistoricalData(ctx, req, dataCh)
		close(dataCh)
		resultCh <- windowOutcome{result: res, err: err}
	}()

	var collected []basedata.BaseDatum
	timer := time.NewTimer(gapTimeout)
	defer timer.Stop()

	for {
		select {
		case d, ok := <-dataCh:
			if !ok {
				// Adapter closed its side; block on this case forever and
				// let resultCh or the gap timer decide when to return.
				dataCh = nil
				continue
			}
			collected = append(collected, d)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(gapTimeout)

		case out := <-resultCh:
			return collected, out.err

		case <-timer.C:
			return collected, nil

		case <-ctx.Done():
			return collected, ctx.Err()
		}
	}
}

func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// pendingBuffer accumulates datums across windows until a full calendar day
// is ready to flush (§4.3 step 3), rather than writing every window
// straight through — a 4h window for tick data would otherwise trigger six
// archive writes per day instead of one.
type pendingBuffer struct {
	items []basedata.BaseDatum
}

func (p *pendingBuffer) add(items []basedata.BaseDatum) {
	p.items = append(p.items, items...)
}

// splitCompleteDays removes and returns every item whose calendar day is
// strictly earlier than the latest item's calendar day, leaving only the
// still-open current day in the buffer.
func (p *pendingBuffer) splitCompleteDays() []basedata.BaseDatum {
	if len(p.items) == 0 {
		return nil
	}
	sort.Slice(p.items, func(i, j int) bool {
		return p.items[i].TimeClosedUTC().Before(p.items[j].TimeClosedUTC())
	})
	lastDay := dayOf(p.items[len(p.items)-1].TimeClosedUTC())

	var complete, remaining []basedata.BaseDatum
	for _, it := range p.items {
		if dayOf(it.TimeClosedUTC()).Before(lastDay) {
			complete = append(complete, it)
		} else {
			remaining = append(remaining, it)
		}
	}
	p.items = remaining
	return complete
}

func (p *pendingBuffer) drain() []basedata.BaseDatum {
	out := p.items
	p.items = nil
	return out
}

// flushWithRetry writes items to store, retrying up to 3 total attempts
// (§4.3 step 3) before giving up and logging the failure so the window loop
// can advance rather than stall forever on a single bad flush.
func flushWithRetry(ctx context.Context, store *archive.Store, items []basedata.BaseDatum, isBulk bool, log *zap.Logger) {
	if len(items) == 0 {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = store.SaveBulk(ctx, items, isBulk); err == nil {
			return
		}
		log.Warn("backfill: flush attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	log.Error("backfill: flush failed after 3 attempts, advancing anyway", zap.Int("count", len(items)), zap.Error(err))
}

// lastTimestamp returns the latest TimeClosedUTC in items, or zero if empty.
func lastTimestamp(items []basedata.BaseDatum) (time.Time, bool) {
	if len(items) == 0 {
		return time.Time{}, false
	}
	max := items[0].TimeClosedUTC()
	for _, it := range items[1:] {
		if it.TimeClosedUTC().After(max) {
			max = it.TimeClosedUTC()
		}
	}
	return max, true
}
