package backfill

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/archive"
	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/vendoradapter"
)

func newTestController(t *testing.T) (*Controller, basedata.Symbol) {
	t.Helper()
	store, err := archive.New(archive.Config{Root: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("archive.New: %v", err)
	}
	sym := basedata.Symbol{Name: "EUR-USD", Vendor: "mock", Market: basedata.MarketForex}
	mock := vendoradapter.NewMock("mock", 5, []vendoradapter.MockSymbol{{
		Symbol: sym, BasePrice: decimal.NewFromFloat(1.1), TickSizeValue: decimal.NewFromFloat(0.0001),
		VolatilityMultiplier: 1, DecimalPlaces: 4,
	}}, nil)

	c := New(Config{MaxConcurrentDownloads: 2, HeartbeatLatency: 50 * time.Millisecond}, store,
		map[string]vendoradapter.VendorAdapter{"mock": mock}, nil, nil)
	return c, sym
}

func TestUpdateToFillsArchiveOverWindow(t *testing.T) {
	c, sym := newTestController(t)
	res := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(5 * time.Minute)

	if err := c.UpdateTo(context.Background(), "mock", sym, basedata.DataTypeCandle, res, from, to); err != nil {
		t.Fatalf("UpdateTo: %v", err)
	}

	key := archive.Key{Vendor: "mock", Market: sym.Market, Symbol: sym.Name, Resolution: res, DataType: basedata.DataTypeCandle}
	earliest, ok, err := c.archive.GetEarliestTime(context.Background(), key)
	if err != nil {
		t.Fatalf("GetEarliestTime: %v", err)
	}
	if !ok {
		t.Fatal("expected archive to have data after UpdateTo")
	}
	if earliest.After(from.Add(time.Minute)) {
		t.Errorf("earliest = %v, expected close to %v", earliest, from)
	}
}

func TestUpdateToRejectsUnknownVendor(t *testing.T) {
	c, sym := newTestController(t)
	res := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}
	err := c.UpdateTo(context.Background(), "nobody", sym, basedata.DataTypeCandle, res, time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected error for unknown vendor")
	}
}

func TestConcurrentUpdateToSameKeyDedups(t *testing.T) {
	c, sym := newTestController(t)
	res := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(3 * time.Minute)

	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errCh <- c.UpdateTo(context.Background(), "mock", sym, basedata.DataTypeCandle, res, from, to)
		}()
	}
	for i := 0; i < 2; i++ {
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("UpdateTo: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for deduped UpdateTo calls")
		}
	}
}

func TestPreSubscribeCatchesUpAfterEarlierTask(t *testing.T) {
	c, sym := newTestController(t)
	res := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	firstDone := make(chan struct{})
	go func() {
		c.UpdateTo(context.Background(), "mock", sym, basedata.DataTypeCandle, res, from, from.Add(2*time.Minute))
		close(firstDone)
	}()

	<-firstDone // ensure the first task has already finished before PreSubscribe runs its own window
	if err := c.PreSubscribe(context.Background(), "mock", sym, res, basedata.DataTypeCandle); err != nil {
		t.Fatalf("PreSubscribe: %v", err)
	}
}
