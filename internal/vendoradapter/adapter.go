// Package vendoradapter defines the narrow interfaces the runtime's core
// (archive, backfill, subscription) uses to talk to a market data vendor or
// a live broker, plus the strategy-facing request/event types that cross
// that boundary (§6). Nothing in this package depends on a concrete vendor;
// concrete adapters (a live exchange client, or the synthetic Mock used in
// tests and paper-trading fixtures) live in their own files and satisfy
// these interfaces structurally.
package vendoradapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// VendorAdapter is the read side of the wire boundary: everything the
// backfill controller and subscription handler need from a market data
// vendor. A concrete adapter owns one vendor connection and may serve many
// symbols across many markets.
type VendorAdapter interface {
	// Name identifies the vendor for logging and catalog keys.
	Name() string

	// Symbols lists every symbol this adapter can serve.
	Symbols(ctx context.Context) ([]basedata.Symbol, error)

	// Resolutions lists the resolutions sym natively streams or can be
	// asked to backfill at.
	Resolutions(sym basedata.Symbol) []basedata.Resolution

	// Markets lists the market types this adapter serves.
	Markets() []basedata.MarketType

	// DecimalAccuracy is the number of decimal places sym's price carries.
	DecimalAccuracy(sym basedata.Symbol) int

	// TickSize is the minimum price increment for sym.
	TickSize(sym basedata.Symbol) decimal.Decimal

	// BaseDataTypes lists the base data types sym streams natively; a
	// subscription for any other type must be consolidated from one of
	// these (§4.5).
	BaseDataTypes(sym basedata.Symbol) []basedata.BaseDataType

	// Subscribe opens a live stream for sub and begins pushing datums
	// into out, tagged with the (symbol, base-data-type) key the caller
	// registered out under. Subscribe returns once the stream is
	// confirmed open, not when it closes; datums keep arriving on out
	// until Unsubscribe is called or ctx is done.
	Subscribe(ctx context.Context, sub basedata.DataSubscription, out chan<- basedata.BaseDatum) error

	// Unsubscribe closes a previously opened stream. Unsubscribing a
	// subscription that was never opened is a no-op.
	Unsubscribe(sub basedata.DataSubscription) error

	// UpdateHistoricalData drives one contiguous backfill window
	// [from, to) for (symbol, dataType, resolution), pushing closed
	// datums into out as they are produced. progress, if non-nil, is
	// called with a running count of datums written so the caller can
	// report download progress. isBulk hints that this is a large
	// multi-day backfill rather than a small forward-fill tail, which
	// some vendors rate-limit differently.
	UpdateHistoricalData(ctx context.Context, req HistoricalRequest, out chan<- basedata.BaseDatum) (HistoricalResult, error)
}

// HistoricalRequest parameterizes UpdateHistoricalData. FromBack, when set,
// asks the adapter to walk backward from To rather than forward from From
// (§4.3's backward-fill mode).
type HistoricalRequest struct {
	Symbol     basedata.Symbol
	DataType   basedata.BaseDataType
	Resolution basedata.Resolution
	From       time.Time
	To         time.Time
	FromBack   bool
	IsBulk     bool
	Progress   func(written int)
}

// HistoricalResult summarizes a completed UpdateHistoricalData call.
type HistoricalResult struct {
	Written  int
	Earliest time.Time
	Latest   time.Time
}
