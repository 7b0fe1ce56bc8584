// Package consolidate implements the consolidator core (C5): tick→bar,
// quote→quote-bar, and bar→larger-bar aggregation, with fill-forward across
// empty windows and archive-backed warmup.
package consolidate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// candleWindow accumulates OHLCV state for one output resolution. It is
// shared by the tick→bar and bar→larger-bar consolidators, which differ
// only in what a single input event contributes to the window (a tick
// contributes a single price point; a sub-bar contributes its own OHLCV).
type candleWindow struct {
	res         basedata.Resolution
	fillForward bool

	open     *basedata.Candle // in-progress bar, nil before the first event
	haveLast bool
	lastC    decimal.Decimal
}

func newCandleWindow(res basedata.Resolution, fillForward bool) *candleWindow {
	return &candleWindow{res: res, fillForward: fillForward}
}

// ingestPoint folds one input contribution into the window. o is only used
// when starting a brand-new window (the open price of its first event); h,
// l, c, vol are folded into the running bar on every call. boundary is the
// output-resolution boundary the event's timestamp falls in.
//
// Returns every closed bar produced by this call — ordinarily zero or one,
// but fill-forward across N skipped boundaries can emit N+1.
func (w *candleWindow) ingestPoint(sym basedata.Symbol, boundary time.Time, o, h, l, c, vol decimal.Decimal) []basedata.Candle {
	if w.open == nil {
		w.open = &basedata.Candle{
			Sym: sym, Res: w.res,
			Open: o, High: h, Low: l, Close: c, Volume: vol,
			TimeClosed: boundary, Closed: false,
		}
		return nil
	}

	if boundary.Equal(w.open.TimeClosed) {
		w.mergeInto(h, l, c, vol)
		return nil
	}

	if boundary.Before(w.open.TimeClosed) {
		return nil // late/out-of-order data, dropped
	}

	var closed []basedata.Candle
	closed = append(closed, w.closeCurrent())

	period := w.res.Duration()
	if period > 0 {
		for next := w.open.TimeClosed.Add(period); next.Before(boundary) && w.fillForward; next = next.Add(period) {
			closed = append(closed, w.fillForwardBar(sym, next))
		}
	}

	w.open = &basedata.Candle{
		Sym: sym, Res: w.res,
		Open: o, High: h, Low: l, Close: c, Volume: vol,
		TimeClosed: boundary, Closed: false,
	}
	return closed
}

func (w *candleWindow) mergeInto(h, l, c, vol decimal.Decimal) {
	if h.GreaterThan(w.open.High) {
		w.open.High = h
	}
	if l.LessThan(w.open.Low) {
		w.open.Low = l
	}
	w.open.Close = c
	w.open.Volume = w.open.Volume.Add(vol)
}

func (w *candleWindow) closeCurrent() basedata.Candle {
	closed := *w.open
	closed.Closed = true
	w.haveLast = true
	w.lastC = closed.Close
	return closed
}

func (w *candleWindow) fillForwardBar(sym basedata.Symbol, boundary time.Time) basedata.Candle {
	return basedata.Candle{
		Sym: sym, Res: w.res,
		Open: w.lastC, High: w.lastC, Low: w.lastC, Close: w.lastC, Volume: decimal.Zero,
		TimeClosed: boundary, Closed: true,
	}
}

// advanceTime closes (and fill-forwards through) any windows whose
// boundary has elapsed by wall/simulated time t, with no new primary data
// having arrived. Used by UpdateTime.
func (w *candleWindow) advanceTime(sym basedata.Symbol, t time.Time) []basedata.Candle {
	if w.open == nil {
		return nil
	}
	boundary := w.res.Boundary(t)
	if !boundary.After(w.open.TimeClosed) {
		return nil
	}
	// Re-use ingestPoint's close+fill-forward path by feeding it the
	// current close as the next point's OHLC — this both closes the
	// present window and fill-forwards up to (not including) the new one.
	c := w.open.Close
	return w.ingestPoint(sym, boundary, c, c, c, c, decimal.Zero)
}

// openSnapshot returns the current in-progress bar, or false if none.
func (w *candleWindow) openSnapshot() (basedata.Candle, bool) {
	if w.open == nil {
		return basedata.Candle{}, false
	}
	return *w.open, true
}
