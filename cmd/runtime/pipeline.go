package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/book"
	"github.com/ndrandal/fund-forge-go/internal/eventbus"
	"github.com/ndrandal/fund-forge-go/internal/ledger"
	"github.com/ndrandal/fund-forge-go/internal/matching"
	"github.com/ndrandal/fund-forge-go/internal/subscription"
	"github.com/ndrandal/fund-forge-go/internal/vendoradapter"
)

// vendorRouter is the subscription handler's Router: it keeps the mock
// vendor's live streams in sync with the handler's current primary set,
// opening a vendor Subscribe the first time a primary gains a referent and
// closing it once the last referent drops.
type vendorRouter struct {
	mu     sync.Mutex
	ctx    context.Context
	vendor *vendoradapter.Mock
	rawCh  chan basedata.BaseDatum
	active map[basedata.DataSubscription]struct{}
	log    *zap.Logger
}

func newVendorRouter(ctx context.Context, vendor *vendoradapter.Mock, rawCh chan basedata.BaseDatum, log *zap.Logger) *vendorRouter {
	return &vendorRouter{
		ctx:    ctx,
		vendor: vendor,
		rawCh:  rawCh,
		active: make(map[basedata.DataSubscription]struct{}),
		log:    log,
	}
}

// route is bound as subscription.Config.Router: it's called with the full
// primary set after every Subscribe/Unsubscribe that changes it.
func (r *vendorRouter) route(primaries []subscription.Primary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[basedata.DataSubscription]struct{}, len(primaries))
	for _, p := range primaries {
		sub := basedata.DataSubscription{
			Symbol:     p.Symbol,
			Resolution: p.Primary.Resolution,
			DataType:   p.Primary.DataType,
			Market:     p.Symbol.Market,
		}
		want[sub] = struct{}{}
		if _, ok := r.active[sub]; ok {
			continue
		}
		if err := r.vendor.Subscribe(r.ctx, sub, r.rawCh); err != nil {
			r.log.Warn("runtime: vendor subscribe failed", zap.String("symbol", sub.Symbol.Name), zap.Error(err))
			continue
		}
		r.active[sub] = struct{}{}
	}

	for sub := range r.active {
		if _, ok := want[sub]; ok {
			continue
		}
		_ = r.vendor.Unsubscribe(sub)
		delete(r.active, sub)
	}
}

// dispatchToBook feeds one closed datum into the book registry, picking the
// registry method by the datum's concrete type (OnBar itself type-switches
// on QuoteBar vs. Candle, so anything that isn't a Quote or a Tick can go
// straight there).
func dispatchToBook(reg *book.Registry, datum basedata.BaseDatum) {
	switch v := datum.(type) {
	case basedata.Quote:
		reg.OnQuote(v)
	case basedata.Tick:
		reg.OnTick(v)
	default:
		reg.OnBar(datum)
	}
}

// runDataPipeline drains rawCh, the vendor's live data, pushing each datum
// through the subscription handler, the book, the matching engine, the
// ledger's mark-to-market, and finally the event bus — C6 through C9's
// data path in one goroutine per runtime process.
func runDataPipeline(
	ctx context.Context,
	rawCh <-chan basedata.BaseDatum,
	handler *subscription.Handler,
	books *book.Registry,
	engine *matching.Engine,
	ledgerActor *ledger.Actor,
	bus *eventbus.Bus,
	log *zap.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case datum, ok := <-rawCh:
			if !ok {
				return
			}
			primary := basedata.PrimarySubscription{Resolution: datum.Resolution(), DataType: datum.DataType()}
			slice, err := handler.UpdateTimeSlice(ctx, datum.Symbol(), primary, datum)
			if err != nil {
				log.Warn("runtime: time slice update failed", zap.String("symbol", datum.Symbol().Name), zap.Error(err))
				continue
			}
			if len(slice.Closed) == 0 {
				continue
			}

			now := datum.TimeClosedUTC()
			closed := make([]basedata.BaseDatum, 0, len(slice.Closed))
			touched := make(map[string]struct{})
			for _, cd := range slice.Closed {
				dispatchToBook(books, cd.Datum)
				closed = append(closed, cd.Datum)
				touched[cd.Datum.Symbol().Name] = struct{}{}
			}
			for symbolName := range touched {
				engine.OnBookUpdate(symbolName, now)
			}
			if err := ledgerActor.TimeSlice(ctx, closed, now); err != nil {
				log.Warn("runtime: ledger time slice failed", zap.Error(err))
			}
			bus.Add(now, eventbus.Event{Kind: eventbus.KindTimeSlice, TimeSlice: closed})
		}
	}
}

// runMatchingForwarder drains the matching engine's event stream, submits
// every fill to the ledger actor, and republishes both the order event and
// any resulting position events onto the bus.
func runMatchingForwarder(ctx context.Context, engine *matching.Engine, ledgerActor *ledger.Actor, bus *eventbus.Bus, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-engine.Events():
			if !ok {
				return
			}
			now := time.Now()
			bus.Add(now, eventbus.Event{Kind: eventbus.KindOrderEvents, OrderEvent: ev})

			if ev.Kind != matching.EventOrderFilled && ev.Kind != matching.EventOrderPartiallyFilled {
				continue
			}
			fill := ledger.FillIntake{
				SymbolName: ev.Order.Symbol.Name,
				SymbolCode: ev.Order.SymbolCode,
				OrderID:    ev.Order.ID,
				Quantity:   ev.FillQuantity,
				Side:       ev.Order.Side,
				Time:       now,
				Price:      ev.FillPrice,
			}
			result, err := ledgerActor.SubmitFill(ctx, fill)
			if err != nil {
				log.Warn("runtime: submit fill failed", zap.String("order", ev.Order.ID), zap.Error(err))
				continue
			}
			for _, pe := range result.Events {
				bus.Add(now, eventbus.Event{Kind: eventbus.KindPositionEvents, PositionEvent: pe})
			}
			if result.Rejected != nil {
				log.Warn("runtime: fill rejected by margin check", zap.String("order", ev.Order.ID), zap.String("reason", result.Rejected.Reason))
			}
		}
	}
}
