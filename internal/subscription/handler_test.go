package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// fakeVendor supports ticks and quotes natively for every symbol, nothing
// coarser.
type fakeVendor struct{}

func (fakeVendor) SupportsPrimary(sym basedata.Symbol, primary basedata.PrimarySubscription) bool {
	return primary.Resolution.Kind == basedata.ResolutionTicks
}

func (fakeVendor) FinestPrimary(sym basedata.Symbol, dataType basedata.BaseDataType) (basedata.PrimarySubscription, bool) {
	switch dataType {
	case basedata.DataTypeTick:
		return basedata.PrimarySubscription{Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1}, DataType: basedata.DataTypeTick}, true
	case basedata.DataTypeQuote:
		return basedata.PrimarySubscription{Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1}, DataType: basedata.DataTypeQuote}, true
	default:
		return basedata.PrimarySubscription{}, false
	}
}

func testSym() basedata.Symbol {
	return basedata.Symbol{Name: "AAPL", Vendor: "ibkr", Market: basedata.MarketEquity}
}

func TestSubscribeBuildsConsolidatorForNonNativeResolution(t *testing.T) {
	var broadcasts [][]Primary
	h := New(fakeVendor{}, nil, Config{
		HistoryToRetain: 5,
		Router:          func(p []Primary) { broadcasts = append(broadcasts, p) },
	}, nil)

	sub := basedata.DataSubscription{
		Symbol: testSym(), DataType: basedata.DataTypeCandle,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionSeconds, Multiplier: 5},
	}
	if err := h.Subscribe(context.Background(), sub, false); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	primaries := h.PrimarySet()
	if len(primaries) != 1 {
		t.Fatalf("got %d primaries, want 1", len(primaries))
	}
	if primaries[0].Primary.DataType != basedata.DataTypeTick {
		t.Errorf("primary data type = %v, want tick", primaries[0].Primary.DataType)
	}
	if len(broadcasts) != 1 {
		t.Fatalf("got %d broadcasts, want 1", len(broadcasts))
	}
}

func TestSubscribeDirectWhenVendorSupportsResolutionNatively(t *testing.T) {
	h := New(fakeVendor{}, nil, Config{}, nil)
	sub := basedata.DataSubscription{
		Symbol: testSym(), DataType: basedata.DataTypeTick,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1},
	}
	if err := h.Subscribe(context.Background(), sub, false); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(h.PrimarySet()) != 1 {
		t.Fatalf("expected one primary registered for a direct subscription")
	}
}

func TestDuplicateSubscribeEmitsFailure(t *testing.T) {
	h := New(fakeVendor{}, nil, Config{}, nil)
	sub := basedata.DataSubscription{
		Symbol: testSym(), DataType: basedata.DataTypeTick,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1},
	}
	_ = h.Subscribe(context.Background(), sub, false)
	<-h.Events() // drain the first Subscribed event

	if err := h.Subscribe(context.Background(), sub, false); err == nil {
		t.Fatal("expected duplicate subscribe to fail")
	}
	ev := <-h.Events()
	if ev.Kind != EventFailedToSubscribe {
		t.Errorf("event kind = %v, want FailedToSubscribe", ev.Kind)
	}
}

func TestUnsubscribeDropsPrimaryOnlyWhenUnreferenced(t *testing.T) {
	h := New(fakeVendor{}, nil, Config{}, nil)
	subA := basedata.DataSubscription{
		Symbol: testSym(), DataType: basedata.DataTypeCandle,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionSeconds, Multiplier: 5},
	}
	subB := basedata.DataSubscription{
		Symbol: testSym(), DataType: basedata.DataTypeCandle,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionSeconds, Multiplier: 10},
	}
	ctx := context.Background()
	_ = h.Subscribe(ctx, subA, false)
	_ = h.Subscribe(ctx, subB, false)
	<-h.Events()
	<-h.Events()

	if len(h.PrimarySet()) != 1 {
		t.Fatalf("both subs share one tick primary, want 1 registered primary")
	}

	h.Unsubscribe(subA)
	<-h.Events()
	if len(h.PrimarySet()) != 1 {
		t.Fatalf("primary still needed by subB, want it to remain registered")
	}

	h.Unsubscribe(subB)
	<-h.Events()
	if len(h.PrimarySet()) != 0 {
		t.Fatalf("last subscriber gone, want the primary deregistered")
	}
}

func TestUpdateTimeSliceDispatchesToConsolidatorAndOrdersOutput(t *testing.T) {
	h := New(fakeVendor{}, nil, Config{RetainWindow: 10}, nil)
	sub := basedata.DataSubscription{
		Symbol: testSym(), DataType: basedata.DataTypeCandle,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionSeconds, Multiplier: 5},
	}
	ctx := context.Background()
	if err := h.Subscribe(ctx, sub, false); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	<-h.Events()

	base := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	primary := basedata.PrimarySubscription{Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1}, DataType: basedata.DataTypeTick}

	tick1 := basedata.Tick{Sym: testSym(), Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1), Time: base}
	slice, err := h.UpdateTimeSlice(ctx, testSym(), primary, tick1)
	if err != nil {
		t.Fatalf("UpdateTimeSlice: %v", err)
	}
	if len(slice.Closed) != 0 || len(slice.Open) != 1 {
		t.Fatalf("first tick: got %d closed / %d open, want 0/1", len(slice.Closed), len(slice.Open))
	}

	tick2 := basedata.Tick{Sym: testSym(), Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(1), Time: base.Add(5 * time.Second)}
	slice, err = h.UpdateTimeSlice(ctx, testSym(), primary, tick2)
	if err != nil {
		t.Fatalf("UpdateTimeSlice: %v", err)
	}
	if len(slice.Closed) != 1 {
		t.Fatalf("got %d closed candles, want 1", len(slice.Closed))
	}
	if slice.Closed[0].Sub != sub {
		t.Errorf("closed datum routed to wrong subscription")
	}
}
