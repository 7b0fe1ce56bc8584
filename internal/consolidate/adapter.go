package consolidate

import (
	"context"
	"time"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// Consolidator is the type-erased surface the subscription handler (C6)
// dispatches against. Each concrete *Consolidator in this package is
// generic over its own BaseDatum variant for callers that already know the
// type; Consolidator lets C6 hold a heterogeneous map of them keyed by
// primary subscription.
type Consolidator interface {
	Primary() basedata.PrimarySubscription
	Output() basedata.DataSubscription
	// UpdateDatum folds one primary datum into the consolidator. d's
	// concrete type must match the consolidator's primary data type; a
	// mismatched type is a no-op (zero closed, hasOpen false).
	UpdateDatum(d basedata.BaseDatum) (closed []basedata.BaseDatum, open basedata.BaseDatum, hasOpen bool)
	UpdateTime(t time.Time) []basedata.BaseDatum
	Warmup(ctx context.Context, store *archive.Store, toTime time.Time, historyCount int) error
}

type tickCandleAdapter struct{ c *TickCandleConsolidator }

// WrapTickCandle erases a *TickCandleConsolidator's concrete BaseDatum
// types so the subscription handler can hold it alongside other
// consolidator kinds.
func WrapTickCandle(c *TickCandleConsolidator) Consolidator { return tickCandleAdapter{c} }

func (a tickCandleAdapter) Primary() basedata.PrimarySubscription { return a.c.Primary() }
func (a tickCandleAdapter) Output() basedata.DataSubscription     { return a.c.Output() }

func (a tickCandleAdapter) UpdateDatum(d basedata.BaseDatum) ([]basedata.BaseDatum, basedata.BaseDatum, bool) {
	tick, ok := d.(basedata.Tick)
	if !ok {
		return nil, nil, false
	}
	closed, open, hasOpen := a.c.Update(tick)
	return candlesToDatums(closed), open, hasOpen
}

func (a tickCandleAdapter) UpdateTime(t time.Time) []basedata.BaseDatum {
	return candlesToDatums(a.c.UpdateTime(t))
}

func (a tickCandleAdapter) Warmup(ctx context.Context, store *archive.Store, toTime time.Time, historyCount int) error {
	return a.c.Warmup(ctx, store, toTime, historyCount)
}

type barCandleAdapter struct{ c *BarCandleConsolidator }

func WrapBarCandle(c *BarCandleConsolidator) Consolidator { return barCandleAdapter{c} }

func (a barCandleAdapter) Primary() basedata.PrimarySubscription { return a.c.Primary() }
func (a barCandleAdapter) Output() basedata.DataSubscription     { return a.c.Output() }

func (a barCandleAdapter) UpdateDatum(d basedata.BaseDatum) ([]basedata.BaseDatum, basedata.BaseDatum, bool) {
	sub, ok := d.(basedata.Candle)
	if !ok {
		return nil, nil, false
	}
	closed, open, hasOpen := a.c.Update(sub)
	return candlesToDatums(closed), open, hasOpen
}

func (a barCandleAdapter) UpdateTime(t time.Time) []basedata.BaseDatum {
	return candlesToDatums(a.c.UpdateTime(t))
}

func (a barCandleAdapter) Warmup(ctx context.Context, store *archive.Store, toTime time.Time, historyCount int) error {
	return a.c.Warmup(ctx, store, toTime, historyCount)
}

type quoteBarAdapter struct{ c *QuoteBarConsolidator }

func WrapQuoteBar(c *QuoteBarConsolidator) Consolidator { return quoteBarAdapter{c} }

func (a quoteBarAdapter) Primary() basedata.PrimarySubscription { return a.c.Primary() }
func (a quoteBarAdapter) Output() basedata.DataSubscription     { return a.c.Output() }

func (a quoteBarAdapter) UpdateDatum(d basedata.BaseDatum) ([]basedata.BaseDatum, basedata.BaseDatum, bool) {
	q, ok := d.(basedata.Quote)
	if !ok {
		return nil, nil, false
	}
	closed, open, hasOpen := a.c.Update(q)
	return quoteBarsToDatums(closed), open, hasOpen
}

func (a quoteBarAdapter) UpdateTime(t time.Time) []basedata.BaseDatum {
	return quoteBarsToDatums(a.c.UpdateTime(t))
}

func (a quoteBarAdapter) Warmup(ctx context.Context, store *archive.Store, toTime time.Time, historyCount int) error {
	return a.c.Warmup(ctx, store, toTime, historyCount)
}

func candlesToDatums(cs []basedata.Candle) []basedata.BaseDatum {
	if len(cs) == 0 {
		return nil
	}
	out := make([]basedata.BaseDatum, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func quoteBarsToDatums(qs []basedata.QuoteBar) []basedata.BaseDatum {
	if len(qs) == 0 {
		return nil
	}
	out := make([]basedata.BaseDatum, len(qs))
	for i, q := range qs {
		out[i] = q
	}
	return out
}
