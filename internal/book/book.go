// Package book implements the price book (C4): per-symbol bid/ask level
// ladders derived from quotes or synthesized from bars, a last-trade
// cache, and the fill-price estimators the matching engine walks against.
package book

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// Side selects which ladder a query or fill walk operates against. A buy
// order fills against Ask; a sell order fills against Bid.
type Side int

const (
	Bid Side = iota
	Ask
)

// Level is a single price rung; level 0 is the first entry of a side's
// slice (best price for that side).
type Level struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// symbolBook is the per-symbol ladder state. A level-0 entry with zero
// volume is a synthesized indicative price, not a real resting quote.
type symbolBook struct {
	mu        sync.RWMutex
	bids      []Level // sorted descending by price
	asks      []Level // sorted ascending by price
	lastPrice decimal.Decimal
	hasLast   bool
	hasQuote  bool // true once a real quote has overwritten level-0
}

// Registry owns every symbol's book. One Registry per running strategy or
// matching engine instance.
type Registry struct {
	mu      sync.RWMutex
	symbols map[string]*symbolBook
}

// NewRegistry creates an empty price-book registry.
func NewRegistry() *Registry {
	return &Registry{symbols: make(map[string]*symbolBook)}
}

func (r *Registry) bookFor(symbol string) *symbolBook {
	r.mu.RLock()
	b, ok := r.symbols[symbol]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.symbols[symbol]; ok {
		return b
	}
	b = &symbolBook{}
	r.symbols[symbol] = b
	return b
}

// OnQuote overwrites level-0 on both sides from q and flags the symbol as
// quote-driven, so subsequent bar arrivals no longer synthesize a price.
func (r *Registry) OnQuote(q basedata.Quote) {
	b := r.bookFor(q.Sym.Name)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = setLevelZero(b.bids, Level{Price: q.Bid, Volume: q.BidSize})
	b.asks = setLevelZero(b.asks, Level{Price: q.Ask, Volume: q.AskSize})
	b.hasQuote = true
}

// OnBar synthesizes level-0 from a closed bar's prices when the symbol is
// not already quote-driven; otherwise it is a no-op. QuoteBar supplies
// real bid/ask closes; Candle (single-sided trade data) synthesizes a
// zero-spread book from its close price.
func (r *Registry) OnBar(d basedata.BaseDatum) {
	if !d.IsClosed() {
		return
	}
	b := r.bookFor(d.Symbol().Name)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hasQuote {
		return
	}

	switch v := d.(type) {
	case basedata.QuoteBar:
		bid, ask := v.BidAskClose()
		b.bids = setLevelZero(b.bids, Level{Price: bid, Volume: decimal.Zero})
		b.asks = setLevelZero(b.asks, Level{Price: ask, Volume: decimal.Zero})
	case basedata.Candle:
		b.bids = setLevelZero(b.bids, Level{Price: v.Close, Volume: decimal.Zero})
		b.asks = setLevelZero(b.asks, Level{Price: v.Close, Volume: decimal.Zero})
	}
}

// OnTick updates only the last-trade cache.
func (r *Registry) OnTick(t basedata.Tick) {
	b := r.bookFor(t.Sym.Name)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastPrice = t.Price
	b.hasLast = true
}

// TopOfBook returns the level-0 price for side, falling back to the
// last-trade price when the requested side has no levels at all.
func (r *Registry) TopOfBook(symbol string, side Side) (decimal.Decimal, bool) {
	b := r.bookFor(symbol)
	b.mu.RLock()
	defer b.mu.RUnlock()

	levels := b.bids
	if side == Ask {
		levels = b.asks
	}
	if len(levels) > 0 {
		return levels[0].Price, true
	}
	if b.hasLast {
		return b.lastPrice, true
	}
	return decimal.Zero, false
}

// setLevelZero replaces or inserts the level-0 entry of a side, keeping the
// rest of the ladder (if any) sorted. Used for both quote overwrites and
// bar synthesis, which only ever touch level 0.
func setLevelZero(levels []Level, l Level) []Level {
	if len(levels) == 0 {
		return []Level{l}
	}
	levels[0] = l
	return levels
}

// sortedCopy returns a defensive copy of a side's ladder, sorted per dir.
func sortedCopy(levels []Level, descending bool) []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}
