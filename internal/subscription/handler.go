// Package subscription implements the subscription handler (C6): it maps
// strategy subscriptions onto the minimal set of vendor primary streams,
// builds and warms the consolidators that bridge them, and dispatches
// incoming primary data to every consolidator rooted at that primary.
package subscription

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/consolidate"
)

// VendorCapabilities answers what a symbol's vendor feed natively offers,
// so the handler can pick a primary per §4.6 step 1/2 without hardcoding
// any one vendor's resolution set.
type VendorCapabilities interface {
	// SupportsPrimary reports whether the vendor streams primary natively
	// for sym (step 1: register it directly, no consolidator needed).
	SupportsPrimary(sym basedata.Symbol, primary basedata.PrimarySubscription) bool
	// FinestPrimary returns the finest primary resolution the vendor
	// offers for sym at dataType, used to root a consolidator when no
	// direct match exists (step 2).
	FinestPrimary(sym basedata.Symbol, dataType basedata.BaseDataType) (basedata.PrimarySubscription, bool)
}

// primaryKey identifies one vendor stream a symbol's consolidators depend
// on.
type primaryKey struct {
	Symbol  basedata.Symbol
	Primary basedata.PrimarySubscription
}

type primaryEntry struct {
	refCount      int
	window        *rollingWindow
	consolidators []consolidate.Consolidator
}

type subEntry struct {
	primary      primaryKey
	direct       bool // true: sub IS the primary, no consolidator
	consolidator consolidate.Consolidator
	window       *rollingWindow
}

// Handler is the subscription handler (C6). It is safe for concurrent use.
type Handler struct {
	mu    sync.RWMutex
	subs  map[basedata.DataSubscription]*subEntry
	prime map[primaryKey]*primaryEntry

	vendor VendorCapabilities
	store  *archive.Store
	log    *zap.Logger

	historyToRetain int
	fillForward     bool
	retainWindow    int

	events chan Event
	router func([]Primary)
}

// Primary is one (symbol, primary subscription) pair the vendor router
// should be streaming, broadcast after every subscribe/unsubscribe.
type Primary struct {
	Symbol  basedata.Symbol
	Primary basedata.PrimarySubscription
}

// Config parameterizes a Handler.
type Config struct {
	HistoryToRetain int  // closed outputs Warmup seeds before live data
	FillForward     bool // consolidators emit flat bars across empty windows
	RetainWindow    int  // rolling window capacity kept per subscription/primary
	// Router is invoked with the full primary set after every subscribe
	// or unsubscribe that changes it. May be nil.
	Router func([]Primary)
}

// New builds a Handler. store is used for warm-start reads; vendor answers
// what each symbol's feed natively supports.
func New(vendor VendorCapabilities, store *archive.Store, cfg Config, log *zap.Logger) *Handler {
	if cfg.RetainWindow <= 0 {
		cfg.RetainWindow = 500
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		subs:            make(map[basedata.DataSubscription]*subEntry),
		prime:           make(map[primaryKey]*primaryEntry),
		vendor:          vendor,
		store:           store,
		log:             log,
		historyToRetain: cfg.HistoryToRetain,
		fillForward:     cfg.FillForward,
		retainWindow:    cfg.RetainWindow,
		events:          make(chan Event, 256),
		router:          cfg.Router,
	}
}

// Events returns the channel subscription lifecycle events are delivered
// on. The caller is expected to drain it (typically forwarding to the
// event bus, C9).
func (h *Handler) Events() <-chan Event { return h.events }

func (h *Handler) emit(ev Event) {
	select {
	case h.events <- ev:
	default:
		h.log.Warn("subscription: event channel full, dropping event",
			zap.String("kind", ev.Kind.String()), zap.Any("sub", ev.Sub))
	}
}

// Subscribe registers a new strategy subscription per §4.6's algorithm. If
// warm is true and the runtime has a store, it warms history before
// returning so history_to_retain closed outputs exist up front.
func (h *Handler) Subscribe(ctx context.Context, sub basedata.DataSubscription, warm bool) error {
	h.mu.Lock()

	if _, exists := h.subs[sub]; exists {
		h.mu.Unlock()
		h.emit(Event{Kind: EventFailedToSubscribe, Sub: sub, Reason: "duplicate subscription"})
		return fmt.Errorf("subscription: %v already subscribed", sub)
	}

	entry, err := h.buildEntry(sub)
	if err != nil {
		h.mu.Unlock()
		h.emit(Event{Kind: EventFailedToSubscribe, Sub: sub, Reason: err.Error()})
		return err
	}

	pe, ok := h.prime[entry.primary]
	if !ok {
		pe = &primaryEntry{window: newRollingWindow(h.retainWindow)}
		h.prime[entry.primary] = pe
	}
	pe.refCount++
	if !entry.direct {
		pe.consolidators = append(pe.consolidators, entry.consolidator)
	}
	h.subs[sub] = entry

	h.mu.Unlock()

	if warm && h.store != nil {
		if err := h.warmup(ctx, sub, entry); err != nil {
			h.log.Warn("subscription: warmup failed", zap.Any("sub", sub), zap.Error(err))
		}
	}

	h.emit(Event{Kind: EventSubscribed, Sub: sub})
	h.broadcastPrimarySet()
	return nil
}

// buildEntry implements §4.6 steps 1-2: pick a direct primary match, or the
// finest available primary plus a consolidator bridging it to sub.
func (h *Handler) buildEntry(sub basedata.DataSubscription) (*subEntry, error) {
	want := sub.Primary()
	if h.vendor.SupportsPrimary(sub.Symbol, want) {
		return &subEntry{
			primary: primaryKey{Symbol: sub.Symbol, Primary: want},
			direct:  true,
			window:  newRollingWindow(h.retainWindow),
		}, nil
	}

	primaryDataType := inputDataType(sub.DataType)
	primary, ok := h.vendor.FinestPrimary(sub.Symbol, primaryDataType)
	if !ok {
		return nil, fmt.Errorf("subscription: vendor does not support %s for %s", primaryDataType, sub.Symbol.Name)
	}

	c, err := buildConsolidator(sub.Symbol, primary, sub, h.fillForward, h.historyToRetain)
	if err != nil {
		return nil, err
	}

	return &subEntry{
		primary:      primaryKey{Symbol: sub.Symbol, Primary: primary},
		consolidator: c,
		window:       newRollingWindow(h.retainWindow),
	}, nil
}

// inputDataType maps an output data type to the primary data type a
// consolidator bridging it would consume.
func inputDataType(out basedata.BaseDataType) basedata.BaseDataType {
	if out == basedata.DataTypeQuoteBar {
		return basedata.DataTypeQuote
	}
	return basedata.DataTypeTick // candle output is bridged from a tick primary (buildConsolidator's Candle/Tick case)
}

func buildConsolidator(sym basedata.Symbol, primary basedata.PrimarySubscription, output basedata.DataSubscription, fillForward bool, retain int) (consolidate.Consolidator, error) {
	switch {
	case output.DataType == basedata.DataTypeQuoteBar && primary.DataType == basedata.DataTypeQuote:
		return consolidate.WrapQuoteBar(consolidate.NewQuoteBarConsolidator(sym, output, fillForward, retain)), nil
	case output.DataType == basedata.DataTypeCandle && primary.DataType == basedata.DataTypeTick:
		return consolidate.WrapTickCandle(consolidate.NewTickCandleConsolidator(sym, output, fillForward, retain)), nil
	case output.DataType == basedata.DataTypeCandle && primary.DataType == basedata.DataTypeCandle:
		if !primary.Resolution.Divides(output.Resolution) {
			return nil, fmt.Errorf("subscription: primary resolution %s does not divide output resolution %s", primary.Resolution, output.Resolution)
		}
		return consolidate.WrapBarCandle(consolidate.NewBarCandleConsolidator(sym, primary.Resolution, output, fillForward, retain)), nil
	default:
		return nil, fmt.Errorf("subscription: no consolidator maps %s primary onto %s output", primary.DataType, output.DataType)
	}
}

func (h *Handler) warmup(ctx context.Context, sub basedata.DataSubscription, entry *subEntry) error {
	now := time.Now().UTC()
	if entry.direct {
		key := archive.Key{
			Vendor: sub.Symbol.Vendor, Market: sub.Symbol.Market, Symbol: sub.Symbol.Name,
			Resolution: sub.Resolution, DataType: sub.DataType,
		}
		items, err := h.store.GetRange(ctx, key, now.Add(-24*time.Hour), now)
		if err != nil {
			return err
		}
		h.mu.Lock()
		entry.window.pushAll(items)
		h.mu.Unlock()
		return nil
	}
	return entry.consolidator.Warmup(ctx, h.store, now, h.historyToRetain)
}

// Unsubscribe removes sub. The underlying primary stream is dropped only
// once no other subscription or consolidator still depends on it.
func (h *Handler) Unsubscribe(sub basedata.DataSubscription) {
	h.mu.Lock()
	entry, ok := h.subs[sub]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, sub)

	if pe, ok := h.prime[entry.primary]; ok {
		pe.refCount--
		if !entry.direct {
			pe.consolidators = removeConsolidator(pe.consolidators, entry.consolidator)
		}
		if pe.refCount <= 0 {
			delete(h.prime, entry.primary)
		}
	}
	h.mu.Unlock()

	h.emit(Event{Kind: EventUnsubscribed, Sub: sub})
	h.broadcastPrimarySet()
}

func removeConsolidator(cs []consolidate.Consolidator, target consolidate.Consolidator) []consolidate.Consolidator {
	out := cs[:0]
	for _, c := range cs {
		if c != target {
			out = append(out, c)
		}
	}
	return out
}

// PrimarySet returns every (symbol, primary) pair currently needed, sorted
// for deterministic broadcast/test comparison.
func (h *Handler) PrimarySet() []Primary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.primarySetLocked()
}

func (h *Handler) primarySetLocked() []Primary {
	out := make([]Primary, 0, len(h.prime))
	for k := range h.prime {
		out = append(out, Primary{Symbol: k.Symbol, Primary: k.Primary})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol.Name != out[j].Symbol.Name {
			return out[i].Symbol.Name < out[j].Symbol.Name
		}
		return out[i].Primary.Resolution.String() < out[j].Primary.Resolution.String()
	})
	return out
}

func (h *Handler) broadcastPrimarySet() {
	if h.router == nil {
		return
	}
	h.router(h.PrimarySet())
}
