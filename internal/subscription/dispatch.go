package subscription

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/consolidate"
)

// TimeSlice is one dispatch's output: every subscription's newly closed
// bars, in ascending (subscription, timestamp) order, followed by each
// subscription's current open bar, delivered once.
type TimeSlice struct {
	Closed []ClosedDatum
	Open   []OpenDatum
}

type ClosedDatum struct {
	Sub   basedata.DataSubscription
	Datum basedata.BaseDatum
}

type OpenDatum struct {
	Sub   basedata.DataSubscription
	Datum basedata.BaseDatum
}

// UpdateTimeSlice implements §4.6's per-tick dispatch: push datum into its
// primary's rolling window, invoke every consolidator rooted at that
// primary concurrently, collapse duplicate (subscription, timestamp)
// closes, and return the deterministically ordered result.
func (h *Handler) UpdateTimeSlice(ctx context.Context, sym basedata.Symbol, primary basedata.PrimarySubscription, datum basedata.BaseDatum) (TimeSlice, error) {
	key := primaryKey{Symbol: sym, Primary: primary}

	h.mu.RLock()
	pe, ok := h.prime[key]
	if !ok {
		h.mu.RUnlock()
		return TimeSlice{}, nil
	}
	consolidators := append([]consolidate.Consolidator(nil), pe.consolidators...)
	var directSubs []basedata.DataSubscription
	for sub, e := range h.subs {
		if e.direct && e.primary == key {
			directSubs = append(directSubs, sub)
		}
	}
	h.mu.RUnlock()

	h.mu.Lock()
	pe.window.push(datum)
	h.mu.Unlock()

	type closedKey struct {
		sub basedata.DataSubscription
		ts  int64
	}
	collapsed := make(map[closedKey]ClosedDatum)
	openBySub := make(map[basedata.DataSubscription]basedata.BaseDatum)
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for _, c := range consolidators {
		c := c
		g.Go(func() error {
			closed, open, hasOpen := c.UpdateDatum(datum)
			mu.Lock()
			defer mu.Unlock()
			for _, cd := range closed {
				collapsed[closedKey{sub: c.Output(), ts: cd.TimeClosedUTC().UnixNano()}] = ClosedDatum{Sub: c.Output(), Datum: cd}
			}
			if hasOpen {
				openBySub[c.Output()] = open
			}
			return nil
		})
	}
	for _, sub := range directSubs {
		sub := sub
		g.Go(func() error {
			mu.Lock()
			defer mu.Unlock()
			collapsed[closedKey{sub: sub, ts: datum.TimeClosedUTC().UnixNano()}] = ClosedDatum{Sub: sub, Datum: datum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TimeSlice{}, err
	}

	closedList := make([]ClosedDatum, 0, len(collapsed))
	for _, cd := range collapsed {
		closedList = append(closedList, cd)
	}
	sort.Slice(closedList, func(i, j int) bool {
		return lessSubTime(closedList[i], closedList[j])
	})

	h.mu.Lock()
	for _, cd := range closedList {
		if e, ok := h.subs[cd.Sub]; ok {
			e.window.push(cd.Datum)
		}
	}
	h.mu.Unlock()

	openList := make([]OpenDatum, 0, len(openBySub))
	for sub, d := range openBySub {
		openList = append(openList, OpenDatum{Sub: sub, Datum: d})
	}
	sort.Slice(openList, func(i, j int) bool {
		return subLess(openList[i].Sub, openList[j].Sub)
	})

	return TimeSlice{Closed: closedList, Open: openList}, nil
}

// UpdateTime advances every consolidator rooted at primary by wall/
// simulated time t, for when no new datum has arrived but windows may have
// elapsed.
func (h *Handler) UpdateTime(sym basedata.Symbol, primary basedata.PrimarySubscription, t time.Time) TimeSlice {
	key := primaryKey{Symbol: sym, Primary: primary}

	h.mu.RLock()
	pe, ok := h.prime[key]
	if !ok {
		h.mu.RUnlock()
		return TimeSlice{}
	}
	consolidators := append([]consolidate.Consolidator(nil), pe.consolidators...)
	h.mu.RUnlock()

	var closedList []ClosedDatum
	for _, c := range consolidators {
		for _, cd := range c.UpdateTime(t) {
			closedList = append(closedList, ClosedDatum{Sub: c.Output(), Datum: cd})
		}
	}
	sort.Slice(closedList, func(i, j int) bool { return lessSubTime(closedList[i], closedList[j]) })

	h.mu.Lock()
	for _, cd := range closedList {
		if e, ok := h.subs[cd.Sub]; ok {
			e.window.push(cd.Datum)
		}
	}
	h.mu.Unlock()

	return TimeSlice{Closed: closedList}
}

func lessSubTime(a, b ClosedDatum) bool {
	if a.Sub != b.Sub {
		return subLess(a.Sub, b.Sub)
	}
	return a.Datum.TimeClosedUTC().Before(b.Datum.TimeClosedUTC())
}

func subLess(a, b basedata.DataSubscription) bool {
	if a.Symbol.Name != b.Symbol.Name {
		return a.Symbol.Name < b.Symbol.Name
	}
	if a.DataType != b.DataType {
		return a.DataType < b.DataType
	}
	return a.Resolution.String() < b.Resolution.String()
}
