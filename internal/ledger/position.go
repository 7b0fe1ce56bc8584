package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// Side is the open direction of a position. A reversal closes one side and
// opens the other; there is no "flat-but-tracked" state.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Long {
		return "long"
	}
	return "short"
}

// PositionEventKind enumerates the position lifecycle events §4.8 emits
// from UpdateOrCreatePosition and PaperExitPosition.
type PositionEventKind int

const (
	PositionOpened PositionEventKind = iota
	PositionIncreased
	PositionReduced
	PositionClosed
)

func (k PositionEventKind) String() string {
	switch k {
	case PositionOpened:
		return "position_opened"
	case PositionIncreased:
		return "position_increased"
	case PositionReduced:
		return "position_reduced"
	case PositionClosed:
		return "position_closed"
	default:
		return "unknown"
	}
}

// PositionEvent is emitted by the position lifecycle methods below and by
// the ledger's UpdateOrCreatePosition algorithm.
type PositionEvent struct {
	Kind         PositionEventKind
	PositionID   string
	Brokerage    string
	Account      string
	SymbolCode   basedata.SymbolCode
	Tag          string
	BookedPnL    decimal.Decimal
	Time         time.Time
}

// Position is one open (or just-closed) holding for a symbol-code under one
// account. QuantityOpen, AveragePrice and OpenPnL are maintained by
// AddToPosition/ReducePositionSize/MarkToMarket; BookedPnL accumulates
// across every reduce/close on this position's lifetime.
type Position struct {
	ID         string
	SymbolName string
	SymbolCode basedata.SymbolCode
	Brokerage  string
	Account    string
	Side       Side

	QuantityOpen decimal.Decimal
	AveragePrice decimal.Decimal

	TickValue   decimal.Decimal // currency value of a one-unit price move per unit of quantity
	PnLCurrency string
	Tag         string

	OpenPnL   decimal.Decimal
	BookedPnL decimal.Decimal

	OpenedAt time.Time
	ClosedAt time.Time
	IsClosed bool
}

// NewPosition builds a freshly opened position.
func NewPosition(id, symbolName string, symbolCode basedata.SymbolCode, brokerage, account string, side Side, qty, price, tickValue decimal.Decimal, pnlCurrency, tag string, at time.Time) *Position {
	return &Position{
		ID:           id,
		SymbolName:   symbolName,
		SymbolCode:   symbolCode,
		Brokerage:    brokerage,
		Account:      account,
		Side:         side,
		QuantityOpen: qty,
		AveragePrice: price,
		TickValue:    tickValue,
		PnLCurrency:  pnlCurrency,
		Tag:          tag,
		OpenedAt:     at,
	}
}

// signedDirection is +1 for Long (profits as price rises), -1 for Short.
func (p *Position) signedDirection() decimal.Decimal {
	if p.Side == Long {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// pnlOver returns the PnL for qty units held at AveragePrice, marked at
// price, in the position's PnL currency.
func (p *Position) pnlOver(price, qty decimal.Decimal) decimal.Decimal {
	diff := price.Sub(p.AveragePrice).Mul(p.signedDirection())
	return diff.Mul(qty).Mul(p.TickValue)
}

// AddToPosition folds an additional same-side fill into the position via a
// quantity-weighted average price, per §4.8 step 2.
func (p *Position) AddToPosition(price, qty decimal.Decimal, at time.Time, tag string) PositionEvent {
	totalQty := p.QuantityOpen.Add(qty)
	if !totalQty.IsZero() {
		weighted := p.AveragePrice.Mul(p.QuantityOpen).Add(price.Mul(qty))
		p.AveragePrice = weighted.Div(totalQty)
	}
	p.QuantityOpen = totalQty
	p.Tag = tag

	return PositionEvent{
		Kind: PositionIncreased, PositionID: p.ID, Brokerage: p.Brokerage,
		Account: p.Account, SymbolCode: p.SymbolCode, Tag: tag, Time: at,
	}
}

// ReducePositionSize closes up to qty units at price, booking realized PnL
// on the closed portion. If qty consumes the remaining open quantity the
// position is marked closed; otherwise it is left open with the remainder,
// per §4.8 step 1.
func (p *Position) ReducePositionSize(price, qty decimal.Decimal, at time.Time, tag string) PositionEvent {
	closedQty := qty
	if closedQty.GreaterThan(p.QuantityOpen) {
		closedQty = p.QuantityOpen
	}

	booked := p.pnlOver(price, closedQty)
	p.BookedPnL = p.BookedPnL.Add(booked)
	p.QuantityOpen = p.QuantityOpen.Sub(closedQty)
	p.Tag = tag

	if p.QuantityOpen.LessThanOrEqual(decimal.Zero) {
		p.QuantityOpen = decimal.Zero
		p.IsClosed = true
		p.ClosedAt = at
		p.OpenPnL = decimal.Zero
		return PositionEvent{
			Kind: PositionClosed, PositionID: p.ID, Brokerage: p.Brokerage,
			Account: p.Account, SymbolCode: p.SymbolCode, Tag: tag,
			BookedPnL: booked, Time: at,
		}
	}

	return PositionEvent{
		Kind: PositionReduced, PositionID: p.ID, Brokerage: p.Brokerage,
		Account: p.Account, SymbolCode: p.SymbolCode, Tag: tag,
		BookedPnL: booked, Time: at,
	}
}

// MarkToMarket recomputes OpenPnL from a closed-price reference extracted
// from a base datum on the symbol the position is held in (§4.8
// "mark-to-market"). No-op for positions already closed.
func (p *Position) MarkToMarket(price decimal.Decimal) {
	if p.IsClosed {
		return
	}
	p.OpenPnL = p.pnlOver(price, p.QuantityOpen)
}

// ReferencePrice extracts the price a mark-to-market pass should use from a
// base datum: a tick's trade price, a quote's mid, or a bar's close.
func ReferencePrice(d basedata.BaseDatum) (decimal.Decimal, bool) {
	switch v := d.(type) {
	case basedata.Tick:
		return v.Price, true
	case basedata.Quote:
		return v.Bid.Add(v.Ask).Div(decimal.NewFromInt(2)), true
	case basedata.Candle:
		return v.Close, true
	case basedata.QuoteBar:
		bid, ask := v.BidAskClose()
		return bid.Add(ask).Div(decimal.NewFromInt(2)), true
	default:
		return decimal.Zero, false
	}
}
