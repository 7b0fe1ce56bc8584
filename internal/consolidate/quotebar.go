package consolidate

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// quoteWindow is candleWindow's counterpart for quote→quote-bar
// aggregation: it tracks OHLC independently for the bid and ask sides.
type quoteWindow struct {
	res         basedata.Resolution
	fillForward bool

	open     *basedata.QuoteBar
	haveLast bool
	lastBid  decimal.Decimal
	lastAsk  decimal.Decimal
}

func newQuoteWindow(res basedata.Resolution, fillForward bool) *quoteWindow {
	return &quoteWindow{res: res, fillForward: fillForward}
}

func (w *quoteWindow) ingest(sym basedata.Symbol, boundary time.Time, bid, ask, size decimal.Decimal) []basedata.QuoteBar {
	if w.open == nil {
		w.open = &basedata.QuoteBar{
			Sym: sym, Res: w.res,
			BidOpen: bid, BidHigh: bid, BidLow: bid, BidClose: bid,
			AskOpen: ask, AskHigh: ask, AskLow: ask, AskClose: ask,
			Volume: size, TimeClosed: boundary, Closed: false,
		}
		return nil
	}

	if boundary.Equal(w.open.TimeClosed) {
		w.merge(bid, ask, size)
		return nil
	}
	if boundary.Before(w.open.TimeClosed) {
		return nil
	}

	var closed []basedata.QuoteBar
	closed = append(closed, w.closeCurrent())

	period := w.res.Duration()
	if period > 0 {
		for next := closed[0].TimeClosed.Add(period); next.Before(boundary) && w.fillForward; next = next.Add(period) {
			closed = append(closed, w.fillForwardBar(sym, next))
		}
	}

	w.open = &basedata.QuoteBar{
		Sym: sym, Res: w.res,
		BidOpen: bid, BidHigh: bid, BidLow: bid, BidClose: bid,
		AskOpen: ask, AskHigh: ask, AskLow: ask, AskClose: ask,
		Volume: size, TimeClosed: boundary, Closed: false,
	}
	return closed
}

func (w *quoteWindow) merge(bid, ask, size decimal.Decimal) {
	if bid.GreaterThan(w.open.BidHigh) {
		w.open.BidHigh = bid
	}
	if bid.LessThan(w.open.BidLow) {
		w.open.BidLow = bid
	}
	w.open.BidClose = bid
	if ask.GreaterThan(w.open.AskHigh) {
		w.open.AskHigh = ask
	}
	if ask.LessThan(w.open.AskLow) {
		w.open.AskLow = ask
	}
	w.open.AskClose = ask
	w.open.Volume = w.open.Volume.Add(size)
}

func (w *quoteWindow) closeCurrent() basedata.QuoteBar {
	closed := *w.open
	closed.Closed = true
	w.haveLast = true
	w.lastBid, w.lastAsk = closed.BidClose, closed.AskClose
	return closed
}

func (w *quoteWindow) fillForwardBar(sym basedata.Symbol, boundary time.Time) basedata.QuoteBar {
	return basedata.QuoteBar{
		Sym: sym, Res: w.res,
		BidOpen: w.lastBid, BidHigh: w.lastBid, BidLow: w.lastBid, BidClose: w.lastBid,
		AskOpen: w.lastAsk, AskHigh: w.lastAsk, AskLow: w.lastAsk, AskClose: w.lastAsk,
		Volume: decimal.Zero, TimeClosed: boundary, Closed: true,
	}
}

func (w *quoteWindow) advanceTime(sym basedata.Symbol, t time.Time) []basedata.QuoteBar {
	if w.open == nil {
		return nil
	}
	boundary := w.res.Boundary(t)
	if !boundary.After(w.open.TimeClosed) {
		return nil
	}
	return w.ingest(sym, boundary, w.open.BidClose, w.open.AskClose, decimal.Zero)
}

func (w *quoteWindow) openSnapshot() (basedata.QuoteBar, bool) {
	if w.open == nil {
		return basedata.QuoteBar{}, false
	}
	return *w.open, true
}

// QuoteBarConsolidator implements quote→quote-bar.
type QuoteBarConsolidator struct {
	sym     basedata.Symbol
	primary basedata.PrimarySubscription
	output  basedata.DataSubscription
	w       *quoteWindow
	history []basedata.QuoteBar
	retain  int
}

func NewQuoteBarConsolidator(sym basedata.Symbol, output basedata.DataSubscription, fillForward bool, retain int) *QuoteBarConsolidator {
	return &QuoteBarConsolidator{
		sym:     sym,
		primary: basedata.PrimarySubscription{Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1}, DataType: basedata.DataTypeQuote},
		output:  output,
		w:       newQuoteWindow(output.Resolution, fillForward),
		retain:  retain,
	}
}

func (c *QuoteBarConsolidator) Primary() basedata.PrimarySubscription { return c.primary }
func (c *QuoteBarConsolidator) Output() basedata.DataSubscription     { return c.output }

func (c *QuoteBarConsolidator) Update(q basedata.Quote) (closed []basedata.QuoteBar, open basedata.QuoteBar, hasOpen bool) {
	boundary := c.w.res.Boundary(q.Time)
	size := q.BidSize.Add(q.AskSize)
	closed = c.w.ingest(c.sym, boundary, q.Bid, q.Ask, size)
	c.retainClosed(closed)
	open, hasOpen = c.w.openSnapshot()
	return closed, open, hasOpen
}

func (c *QuoteBarConsolidator) UpdateTime(t time.Time) []basedata.QuoteBar {
	closed := c.w.advanceTime(c.sym, t)
	c.retainClosed(closed)
	return closed
}

func (c *QuoteBarConsolidator) History() []basedata.QuoteBar { return c.history }

func (c *QuoteBarConsolidator) retainClosed(closed []basedata.QuoteBar) {
	if len(closed) == 0 {
		return
	}
	c.history = append(c.history, closed...)
	if c.retain > 0 && len(c.history) > c.retain {
		c.history = c.history[len(c.history)-c.retain:]
	}
}

func (c *QuoteBarConsolidator) Warmup(ctx context.Context, store *archive.Store, toTime time.Time, historyCount int) error {
	lookback := estimateLookback(c.w.res, historyCount)
	key := archive.Key{
		Vendor: c.sym.Vendor, Market: c.sym.Market, Symbol: c.sym.Name,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1},
		DataType:   basedata.DataTypeQuote,
	}
	items, err := store.GetRange(ctx, key, toTime.Add(-lookback), toTime)
	if err != nil {
		return fmt.Errorf("consolidate: warmup quote history: %w", err)
	}
	for _, d := range items {
		q, ok := d.(basedata.Quote)
		if !ok {
			continue
		}
		c.Update(q)
	}
	return nil
}
