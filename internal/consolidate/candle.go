package consolidate

import (
	"context"
	"fmt"
	"time"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// TickCandleConsolidator implements tick→bar: it aggregates raw trade
// prints into OHLCV candles at a coarser resolution.
type TickCandleConsolidator struct {
	sym     basedata.Symbol
	primary basedata.PrimarySubscription
	output  basedata.DataSubscription
	w       *candleWindow
	history []basedata.Candle
	retain  int
}

// NewTickCandleConsolidator builds a tick→bar consolidator for sym,
// producing candles at output.Resolution. retain bounds how many closed
// candles History() keeps.
func NewTickCandleConsolidator(sym basedata.Symbol, output basedata.DataSubscription, fillForward bool, retain int) *TickCandleConsolidator {
	return &TickCandleConsolidator{
		sym:     sym,
		primary: basedata.PrimarySubscription{Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1}, DataType: basedata.DataTypeTick},
		output:  output,
		w:       newCandleWindow(output.Resolution, fillForward),
		retain:  retain,
	}
}

func (c *TickCandleConsolidator) Primary() basedata.PrimarySubscription { return c.primary }
func (c *TickCandleConsolidator) Output() basedata.DataSubscription     { return c.output }

// Update folds one tick into the current window.
func (c *TickCandleConsolidator) Update(tick basedata.Tick) (closed []basedata.Candle, open basedata.Candle, hasOpen bool) {
	boundary := c.w.res.Boundary(tick.Time)
	closed = c.w.ingestPoint(c.sym, boundary, tick.Price, tick.Price, tick.Price, tick.Price, tick.Size)
	c.retainClosed(closed)
	open, hasOpen = c.w.openSnapshot()
	return closed, open, hasOpen
}

// UpdateTime advances the window by wall/simulated time alone, closing and
// optionally fill-forwarding any windows whose boundary has elapsed.
func (c *TickCandleConsolidator) UpdateTime(t time.Time) []basedata.Candle {
	closed := c.w.advanceTime(c.sym, t)
	c.retainClosed(closed)
	return closed
}

// History returns the most recently closed candles, oldest first, capped
// at retain.
func (c *TickCandleConsolidator) History() []basedata.Candle { return c.history }

func (c *TickCandleConsolidator) retainClosed(closed []basedata.Candle) {
	if len(closed) == 0 {
		return
	}
	c.history = append(c.history, closed...)
	if c.retain > 0 && len(c.history) > c.retain {
		c.history = c.history[len(c.history)-c.retain:]
	}
}

// Warmup seeds the consolidator from archived primary data so at least
// historyCount closed candles (and the current open bar) exist before the
// next live tick arrives.
func (c *TickCandleConsolidator) Warmup(ctx context.Context, store *archive.Store, toTime time.Time, historyCount int) error {
	lookback := estimateLookback(c.w.res, historyCount)
	key := archive.Key{
		Vendor: c.sym.Vendor, Market: c.sym.Market, Symbol: c.sym.Name,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1},
		DataType:   basedata.DataTypeTick,
	}
	items, err := store.GetRange(ctx, key, toTime.Add(-lookback), toTime)
	if err != nil {
		return fmt.Errorf("consolidate: warmup tick history: %w", err)
	}
	for _, d := range items {
		tick, ok := d.(basedata.Tick)
		if !ok {
			continue
		}
		c.Update(tick)
	}
	return nil
}

// BarCandleConsolidator implements bar→larger-bar: it re-aggregates
// already-closed candles at a finer resolution into a coarser one (e.g.
// 1-minute candles into 5-minute candles).
type BarCandleConsolidator struct {
	sym     basedata.Symbol
	primary basedata.PrimarySubscription
	output  basedata.DataSubscription
	w       *candleWindow
	history []basedata.Candle
	retain  int
}

// NewBarCandleConsolidator builds a bar→larger-bar consolidator. inputRes
// must evenly divide output.Resolution (checked by the subscription
// handler before construction).
func NewBarCandleConsolidator(sym basedata.Symbol, inputRes basedata.Resolution, output basedata.DataSubscription, fillForward bool, retain int) *BarCandleConsolidator {
	return &BarCandleConsolidator{
		sym:     sym,
		primary: basedata.PrimarySubscription{Resolution: inputRes, DataType: basedata.DataTypeCandle},
		output:  output,
		w:       newCandleWindow(output.Resolution, fillForward),
		retain:  retain,
	}
}

func (c *BarCandleConsolidator) Primary() basedata.PrimarySubscription { return c.primary }
func (c *BarCandleConsolidator) Output() basedata.DataSubscription     { return c.output }

func (c *BarCandleConsolidator) Update(sub basedata.Candle) (closed []basedata.Candle, open basedata.Candle, hasOpen bool) {
	if !sub.Closed {
		return nil, basedata.Candle{}, false
	}
	boundary := c.w.res.Boundary(sub.TimeClosed)
	closed = c.w.ingestPoint(c.sym, boundary, sub.Open, sub.High, sub.Low, sub.Close, sub.Volume)
	c.retainClosed(closed)
	open, hasOpen = c.w.openSnapshot()
	return closed, open, hasOpen
}

func (c *BarCandleConsolidator) UpdateTime(t time.Time) []basedata.Candle {
	closed := c.w.advanceTime(c.sym, t)
	c.retainClosed(closed)
	return closed
}

func (c *BarCandleConsolidator) History() []basedata.Candle { return c.history }

func (c *BarCandleConsolidator) retainClosed(closed []basedata.Candle) {
	if len(closed) == 0 {
		return
	}
	c.history = append(c.history, closed...)
	if c.retain > 0 && len(c.history) > c.retain {
		c.history = c.history[len(c.history)-c.retain:]
	}
}

func (c *BarCandleConsolidator) Warmup(ctx context.Context, store *archive.Store, toTime time.Time, historyCount int) error {
	lookback := estimateLookback(c.w.res, historyCount)
	key := archive.Key{
		Vendor: c.sym.Vendor, Market: c.sym.Market, Symbol: c.sym.Name,
		Resolution: c.primary.Resolution, DataType: basedata.DataTypeCandle,
	}
	items, err := store.GetRange(ctx, key, toTime.Add(-lookback), toTime)
	if err != nil {
		return fmt.Errorf("consolidate: warmup bar history: %w", err)
	}
	for _, d := range items {
		sub, ok := d.(basedata.Candle)
		if !ok {
			continue
		}
		c.Update(sub)
	}
	return nil
}

// estimateLookback gives Warmup a generous read window: historyCount+2
// output windows, or a full day when the output resolution has no fixed
// duration to multiply (tick-count bars).
func estimateLookback(outputRes basedata.Resolution, historyCount int) time.Duration {
	period := outputRes.Duration()
	if period <= 0 {
		return 24 * time.Hour
	}
	return period * time.Duration(historyCount+2)
}
