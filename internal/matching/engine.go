package matching

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/book"
)

// PositionQuery answers whether an account currently holds a side of a
// symbol, needed only for ExitLong/ExitShort admission ("must currently
// hold that side"). The ledger (C8) implements this; the matching engine
// never mutates positions itself — fills are reported as events and the
// ledger's UpdateOrCreatePosition algorithm does the actual reduce/open
// bookkeeping.
type PositionQuery interface {
	HasPosition(account string, symbolCode basedata.SymbolCode, side Side) bool
}

// Engine is the matching engine (C7). One Engine serves every symbol for
// a brokerage/account universe; OnBookUpdate is called once per price-book
// update for the affected symbol.
type Engine struct {
	mu sync.Mutex

	book      *book.Registry
	positions PositionQuery

	tickSizes   map[string]decimal.Decimal
	defaultTick decimal.Decimal

	open map[string]map[string]*Order // symbol name -> order ID -> order

	events chan Event
	log    *zap.Logger
}

// New builds an Engine. b supplies top-of-book and fill estimation;
// positions answers ExitLong/ExitShort admission; defaultTick is used for
// any symbol without an explicit SetTickSize call.
func New(b *book.Registry, positions PositionQuery, defaultTick decimal.Decimal, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		book:        b,
		positions:   positions,
		tickSizes:   make(map[string]decimal.Decimal),
		defaultTick: defaultTick,
		open:        make(map[string]map[string]*Order),
		events:      make(chan Event, 256),
		log:         log,
	}
}

// SetTickSize overrides the rounding grid used for a symbol's fills.
func (e *Engine) SetTickSize(symbol string, tick decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickSizes[symbol] = tick
}

func (e *Engine) tickSizeFor(symbol string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.tickSizes[symbol]; ok {
		return t
	}
	return e.defaultTick
}

// Events returns the channel order lifecycle events are delivered on.
func (e *Engine) Events() <-chan Event { return e.events }

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.log.Warn("matching: event channel full, dropping event",
			zap.String("kind", ev.Kind.String()), zap.String("order", ev.Order.ID))
	}
}

// marketReference returns the opposite-side top of book an order's
// admission check and trigger condition are evaluated against: ask for a
// buy, bid for a sell.
func (e *Engine) marketReference(symbol string, side Side) (decimal.Decimal, bool) {
	bookSide := book.Ask
	if side == Sell {
		bookSide = book.Bid
	}
	return e.book.TopOfBook(symbol, bookSide)
}

// Submit runs admission checks on a new order and, if accepted, attempts
// an immediate matching pass (so Market/Enter/Exit orders — whose trigger
// is "immediate" — fill without waiting for the next OnBookUpdate call).
func (e *Engine) Submit(o *Order, now time.Time) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}

	market, haveMarket := e.marketReference(o.Symbol.Name, o.Side)
	if !haveMarket {
		o.Status = StatusRejected
		o.RejectReason = "no market reference available"
		e.emit(Event{Kind: EventOrderRejected, Order: *o, Reason: o.RejectReason})
		return fmt.Errorf("matching: %s", o.RejectReason)
	}

	heldRequiredSide := false
	if (o.Type == ExitLong || o.Type == ExitShort) && e.positions != nil {
		// ExitLong closes a Buy-side (long) position; ExitShort closes a
		// Sell-side (short) position. heldSide names which side must
		// currently be open for the exit to be admissible.
		heldSide := Buy
		if o.Type == ExitShort {
			heldSide = Sell
		}
		heldRequiredSide = e.positions.HasPosition(o.Account, o.SymbolCode, heldSide)
	}

	if ok, reason := checkAdmission(o, market, heldRequiredSide); !ok {
		o.Status = StatusRejected
		o.RejectReason = reason
		e.emit(Event{Kind: EventOrderRejected, Order: *o, Reason: reason})
		return fmt.Errorf("matching: %s", reason)
	}

	o.Status = StatusAccepted
	o.CreatedAt = now

	e.mu.Lock()
	bySymbol, ok := e.open[o.Symbol.Name]
	if !ok {
		bySymbol = make(map[string]*Order)
		e.open[o.Symbol.Name] = bySymbol
	}
	bySymbol[o.ID] = o
	e.mu.Unlock()

	e.emit(Event{Kind: EventOrderAccepted, Order: *o})

	e.matchOne(o, now)
	return nil
}

// OnBookUpdate runs one matching pass over every order resting for
// symbol. Iteration order over the open-order map is Go's randomized map
// order, matching §4.7's tie-break note that callers must assert
// properties rather than pass order.
func (e *Engine) OnBookUpdate(symbol string, now time.Time) {
	e.mu.Lock()
	bySymbol := e.open[symbol]
	orders := make([]*Order, 0, len(bySymbol))
	for _, o := range bySymbol {
		orders = append(orders, o)
	}
	e.mu.Unlock()

	for _, o := range orders {
		e.matchOne(o, now)
	}
}

// matchOne evaluates TIF expiry, then the trigger condition, for one
// resting order, filling (fully or partially) and removing it from the
// open set when its remaining quantity reaches zero, it expires, or (for
// IOC) it leaves any quantity unfilled on this pass.
func (e *Engine) matchOne(o *Order, now time.Time) {
	if expired, reason := tifExpired(o, now); expired {
		e.removeOpen(o)
		o.Status = StatusRejected
		o.RejectReason = reason
		e.emit(Event{Kind: EventOrderRejected, Order: *o, Reason: reason})
		return
	}

	market, haveMarket := e.marketReference(o.Symbol.Name, o.Side)
	if !haveMarket || !triggered(o, market) {
		if o.TIF.Kind == IOC {
			e.removeOpen(o)
			o.Status = StatusRejected
			o.RejectReason = "IOC order unfilled on arrival"
			e.emit(Event{Kind: EventOrderRejected, Order: *o, Reason: o.RejectReason})
		}
		return
	}

	tick := e.tickSizeFor(o.Symbol.Name)
	remaining := o.Remaining()

	var price, filled decimal.Decimal
	switch o.Type {
	case Limit, StopLimit:
		bookSide := book.Ask
		isBuy := o.Side == Buy
		if o.Side == Sell {
			bookSide = book.Bid
		}
		price, filled = e.book.LimitFill(o.Symbol.Name, bookSide, remaining, o.LimitPrice, tick, isBuy)
	default:
		bookSide := book.Ask
		if o.Side == Sell {
			bookSide = book.Bid
		}
		price, filled = e.book.MarketFill(o.Symbol.Name, bookSide, remaining, tick)
	}

	if o.TIF.Kind == FOK && filled.LessThan(remaining) {
		e.removeOpen(o)
		o.Status = StatusRejected
		o.RejectReason = "FOK order could not be filled in full"
		e.emit(Event{Kind: EventOrderRejected, Order: *o, Reason: o.RejectReason})
		return
	}

	if filled.IsZero() {
		if o.TIF.Kind == IOC {
			e.removeOpen(o)
			o.Status = StatusRejected
			o.RejectReason = "IOC order unfilled on arrival"
			e.emit(Event{Kind: EventOrderRejected, Order: *o, Reason: o.RejectReason})
		}
		return
	}

	o.FilledQuantity = o.FilledQuantity.Add(filled)
	fullyFilled := o.Remaining().LessThanOrEqual(decimal.Zero)

	if fullyFilled {
		o.Status = StatusFilled
		e.removeOpen(o)
		e.emit(Event{Kind: EventOrderFilled, Order: *o, FillPrice: price, FillQuantity: filled})
		return
	}

	o.Status = StatusPartiallyFilled
	e.emit(Event{Kind: EventOrderPartiallyFilled, Order: *o, FillPrice: price, FillQuantity: filled})

	if o.TIF.Kind == IOC {
		e.removeOpen(o)
		o.RejectReason = "IOC remainder cancelled"
		e.emit(Event{Kind: EventOrderRejected, Order: *o, Reason: o.RejectReason})
	}
}

func (e *Engine) removeOpen(o *Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if bySymbol, ok := e.open[o.Symbol.Name]; ok {
		delete(bySymbol, o.ID)
		if len(bySymbol) == 0 {
			delete(e.open, o.Symbol.Name)
		}
	}
}

// OpenOrders returns a snapshot of orders still resting for symbol.
func (e *Engine) OpenOrders(symbol string) []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	bySymbol := e.open[symbol]
	out := make([]Order, 0, len(bySymbol))
	for _, o := range bySymbol {
		out = append(out, *o)
	}
	return out
}
