package book

import (
	"github.com/shopspring/decimal"
)

// MarketFill walks side's ladder from level 0 upward, consuming volume
// until qty is satisfied, and returns the volume-weighted average price
// rounded to tickSize. If the ladder is shallower than qty, it returns the
// partial VWAP and the filled quantity. If the ladder is empty, it falls
// back to the last-trade price for the full requested quantity (the
// estimator cannot do better without a counterparty).
func (r *Registry) MarketFill(symbol string, side Side, qty, tickSize decimal.Decimal) (price, filled decimal.Decimal) {
	b := r.bookFor(symbol)
	b.mu.RLock()
	levels := ladderFor(b, side)
	last, hasLast := b.lastPrice, b.hasLast
	b.mu.RUnlock()

	if len(levels) == 0 {
		if hasLast {
			return last, qty
		}
		return decimal.Zero, decimal.Zero
	}

	return walkLadder(levels, qty, tickSize, nil)
}

// LimitFill is MarketFill but stops at the first level whose price
// violates the limit: for a buy, price > limit; for a sell, price < limit.
// filled < qty means a partial fill; filled == 0 means the order rests
// untouched this pass.
func (r *Registry) LimitFill(symbol string, side Side, qty, limit, tickSize decimal.Decimal, isBuy bool) (price, filled decimal.Decimal) {
	b := r.bookFor(symbol)
	b.mu.RLock()
	levels := ladderFor(b, side)
	b.mu.RUnlock()

	violatesLimit := func(p decimal.Decimal) bool {
		if isBuy {
			return p.GreaterThan(limit)
		}
		return p.LessThan(limit)
	}

	if len(levels) == 0 {
		return decimal.Zero, decimal.Zero
	}
	return walkLadder(levels, qty, tickSize, violatesLimit)
}

func ladderFor(b *symbolBook, side Side) []Level {
	if side == Bid {
		return sortedCopy(b.bids, true)
	}
	return sortedCopy(b.asks, false)
}

// walkLadder consumes levels in order until qty is satisfied or a level
// fails stop(price); it returns the VWAP of whatever was consumed, rounded
// to tickSize, and the quantity actually filled.
func walkLadder(levels []Level, qty, tickSize decimal.Decimal, stop func(decimal.Decimal) bool) (price, filled decimal.Decimal) {
	remaining := qty
	var notional decimal.Decimal
	var consumed decimal.Decimal

	for _, lvl := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if stop != nil && stop(lvl.Price) {
			break
		}

		available := lvl.Volume
		if available.IsZero() {
			// Synthesized indicative level: treat as infinite depth so a
			// market/limit order against a bar-derived book can still fill.
			available = remaining
		}

		take := remaining
		if available.LessThan(remaining) {
			take = available
		}

		notional = notional.Add(lvl.Price.Mul(take))
		consumed = consumed.Add(take)
		remaining = remaining.Sub(take)
	}

	if consumed.IsZero() {
		return decimal.Zero, decimal.Zero
	}

	vwap := notional.Div(consumed)
	return roundToTick(vwap, tickSize), consumed
}

// roundToTick rounds price to the nearest multiple of tickSize. A
// zero/negative tickSize means "no tick grid" and returns price unchanged.
func roundToTick(price, tickSize decimal.Decimal) decimal.Decimal {
	if tickSize.LessThanOrEqual(decimal.Zero) {
		return price
	}
	ticks := price.Div(tickSize).Round(0)
	return ticks.Mul(tickSize)
}
