package consolidate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

func dd(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return v
}

func TestTickCandleConsolidatorAggregatesWindow(t *testing.T) {
	sym := basedata.Symbol{Name: "AAPL", Vendor: "ibkr", Market: basedata.MarketEquity}
	output := basedata.DataSubscription{
		Symbol: sym, DataType: basedata.DataTypeCandle,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionSeconds, Multiplier: 5},
	}
	c := NewTickCandleConsolidator(sym, output, false, 10)

	base := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	ticks := []basedata.Tick{
		{Sym: sym, Price: dd(t, "100"), Size: dd(t, "1"), Time: base},
		{Sym: sym, Price: dd(t, "101"), Size: dd(t, "2"), Time: base.Add(time.Second)},
		{Sym: sym, Price: dd(t, "99"), Size: dd(t, "1"), Time: base.Add(2 * time.Second)},
		{Sym: sym, Price: dd(t, "100.5"), Size: dd(t, "3"), Time: base.Add(4 * time.Second)},
	}
	var lastClosed []basedata.Candle
	for _, tk := range ticks {
		closed, _, _ := c.Update(tk)
		lastClosed = append(lastClosed, closed...)
	}
	if len(lastClosed) != 0 {
		t.Fatalf("expected no closed candle within the 5s window, got %d", len(lastClosed))
	}

	// Next tick lands in the following window, closing the first.
	closed, open, hasOpen := c.Update(basedata.Tick{Sym: sym, Price: dd(t, "102"), Size: dd(t, "1"), Time: base.Add(5 * time.Second)})
	if len(closed) != 1 {
		t.Fatalf("got %d closed candles, want 1", len(closed))
	}
	first := closed[0]
	if !first.Open.Equal(dd(t, "100")) || !first.Close.Equal(dd(t, "100.5")) {
		t.Errorf("O/C = %s/%s, want 100/100.5", first.Open, first.Close)
	}
	if !first.High.Equal(dd(t, "101")) || !first.Low.Equal(dd(t, "99")) {
		t.Errorf("H/L = %s/%s, want 101/99", first.High, first.Low)
	}
	if !first.Volume.Equal(dd(t, "7")) {
		t.Errorf("Volume = %s, want 7", first.Volume)
	}
	if !hasOpen || !open.Close.Equal(dd(t, "102")) {
		t.Errorf("open snapshot = %+v, want close 102", open)
	}
}

func TestFillForwardEmitsFlatCandlesAcrossGap(t *testing.T) {
	sym := basedata.Symbol{Name: "ES", Vendor: "rithmic", Market: basedata.MarketFutures}
	output := basedata.DataSubscription{
		Symbol: sym, DataType: basedata.DataTypeCandle,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionSeconds, Multiplier: 5},
	}
	c := NewTickCandleConsolidator(sym, output, true, 10)

	base := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	// One tick at t=0 closes value 50 as soon as the window advances.
	c.Update(basedata.Tick{Sym: sym, Price: dd(t, "50"), Size: dd(t, "1"), Time: base})

	// Advance 20s with no further ticks: the 0-5s window closes at close=50,
	// then three more 5s windows are fill-forwarded flat at 50 before the
	// open bar sits at t=20.
	closed := c.UpdateTime(base.Add(20 * time.Second))

	flat := 0
	for _, cd := range closed {
		if cd.Volume.IsZero() && cd.Open.Equal(dd(t, "50")) && cd.Close.Equal(dd(t, "50")) {
			flat++
		}
	}
	if flat != 3 {
		t.Fatalf("got %d flat fill-forward candles, want 3 (closed=%+v)", flat, closed)
	}
	for _, cd := range closed {
		if !cd.High.Equal(dd(t, "50")) || !cd.Low.Equal(dd(t, "50")) {
			t.Errorf("fill-forward candle should be flat O=H=L=C, got %+v", cd)
		}
	}
}

func TestBarCandleConsolidatorAggregatesSubBars(t *testing.T) {
	sym := basedata.Symbol{Name: "ES", Vendor: "rithmic", Market: basedata.MarketFutures}
	inputRes := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}
	output := basedata.DataSubscription{
		Symbol: sym, DataType: basedata.DataTypeCandle,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 5},
	}
	c := NewBarCandleConsolidator(sym, inputRes, output, false, 10)

	base := time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sub := basedata.Candle{
			Sym: sym, Res: inputRes,
			Open: dd(t, "100"), High: dd(t, "101"), Low: dd(t, "99"), Close: dd(t, "100"),
			Volume: dd(t, "10"), TimeClosed: base.Add(time.Duration(i) * time.Minute), Closed: true,
		}
		c.Update(sub)
	}
	// 6th sub-bar lands in the next 5-minute window and closes the first.
	closed, _, _ := c.Update(basedata.Candle{
		Sym: sym, Res: inputRes,
		Open: dd(t, "100"), High: dd(t, "100"), Low: dd(t, "100"), Close: dd(t, "100"),
		Volume: dd(t, "5"), TimeClosed: base.Add(5 * time.Minute), Closed: true,
	})
	if len(closed) != 1 {
		t.Fatalf("got %d closed candles, want 1", len(closed))
	}
	if !closed[0].Volume.Equal(dd(t, "50")) {
		t.Errorf("Volume = %s, want 50 (5 sub-bars x 10)", closed[0].Volume)
	}
}

func TestQuoteBarConsolidatorAggregatesBidAsk(t *testing.T) {
	sym := basedata.Symbol{Name: "EURUSD", Vendor: "oanda", Market: basedata.MarketForex}
	output := basedata.DataSubscription{
		Symbol: sym, DataType: basedata.DataTypeQuoteBar,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionSeconds, Multiplier: 1},
	}
	c := NewQuoteBarConsolidator(sym, output, false, 10)

	base := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	c.Update(basedata.Quote{Sym: sym, Bid: dd(t, "1.2000"), Ask: dd(t, "1.2002"), BidSize: dd(t, "1"), AskSize: dd(t, "1"), Time: base})
	c.Update(basedata.Quote{Sym: sym, Bid: dd(t, "1.2005"), Ask: dd(t, "1.2007"), BidSize: dd(t, "1"), AskSize: dd(t, "1"), Time: base.Add(200 * time.Millisecond)})
	closed, _, _ := c.Update(basedata.Quote{Sym: sym, Bid: dd(t, "1.1998"), Ask: dd(t, "1.2000"), BidSize: dd(t, "1"), AskSize: dd(t, "1"), Time: base.Add(time.Second)})

	if len(closed) != 1 {
		t.Fatalf("got %d closed quote bars, want 1", len(closed))
	}
	qb := closed[0]
	if !qb.BidHigh.Equal(dd(t, "1.2005")) || !qb.AskHigh.Equal(dd(t, "1.2007")) {
		t.Errorf("bid/ask high = %s/%s, want 1.2005/1.2007", qb.BidHigh, qb.AskHigh)
	}
	if !qb.BidClose.Equal(dd(t, "1.2005")) {
		t.Errorf("bid close = %s, want 1.2005 (last quote merged into the closed window)", qb.BidClose)
	}
}
