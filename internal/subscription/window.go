package subscription

import "github.com/ndrandal/fund-forge-go/internal/basedata"

// rollingWindow is a capacity-bounded, oldest-first buffer of closed data
// points. It backs both the per-primary raw history and each strategy
// subscription's rolling history of consolidator outputs.
type rollingWindow struct {
	items []basedata.BaseDatum
	cap   int
}

func newRollingWindow(capacity int) *rollingWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &rollingWindow{cap: capacity}
}

func (w *rollingWindow) push(d basedata.BaseDatum) {
	w.items = append(w.items, d)
	if len(w.items) > w.cap {
		w.items = w.items[len(w.items)-w.cap:]
	}
}

func (w *rollingWindow) pushAll(ds []basedata.BaseDatum) {
	for _, d := range ds {
		w.push(d)
	}
}

func (w *rollingWindow) snapshot() []basedata.BaseDatum {
	out := make([]basedata.BaseDatum, len(w.items))
	copy(out, w.items)
	return out
}
