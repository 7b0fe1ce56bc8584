package archive

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Root: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func testSymbol() basedata.Symbol {
	return basedata.Symbol{Name: "EURUSD", Vendor: "oanda", Market: basedata.MarketForex}
}

func testKey() Key {
	sym := testSymbol()
	return Key{Vendor: sym.Vendor, Market: sym.Market, Symbol: sym.Name,
		Resolution: basedata.Resolution{Kind: basedata.ResolutionTicks, Multiplier: 1},
		DataType:   basedata.DataTypeQuote}
}

func quoteAt(t *testing.T, ts time.Time, bid, ask string) basedata.Quote {
	return basedata.Quote{
		Sym: testSymbol(), Bid: dec(t, bid), Ask: dec(t, ask),
		BidSize: dec(t, "1"), AskSize: dec(t, "1"), Time: ts,
	}
}

func TestSaveAndRetrieveSingleQuote(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	q := quoteAt(t, ts, "1.2343", "1.2345")

	if err := s.Save(ctx, q); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.GetRange(ctx, testKey(), ts.Add(-time.Hour), ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
	gq, ok := got[0].(basedata.Quote)
	if !ok {
		t.Fatalf("got %T, want Quote", got[0])
	}
	if !gq.Bid.Equal(q.Bid) || !gq.Ask.Equal(q.Ask) {
		t.Errorf("got bid/ask %s/%s, want %s/%s", gq.Bid, gq.Ask, q.Bid, q.Ask)
	}
}

func TestBulkSaveTenSequentialQuotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)

	var items []basedata.BaseDatum
	for i := 0; i < 10; i++ {
		ask := dec(t, "1.2000").Add(dec(t, "0.0001").Mul(decimal.NewFromInt(int64(i))))
		items = append(items, basedata.Quote{
			Sym: testSymbol(), Bid: ask.Sub(dec(t, "0.0002")), Ask: ask,
			BidSize: dec(t, "1"), AskSize: dec(t, "1"),
			Time: base.Add(time.Duration(i) * time.Second),
		})
	}

	if err := s.SaveBulk(ctx, items, false); err != nil {
		t.Fatalf("SaveBulk: %v", err)
	}

	got, err := s.GetRange(ctx, testKey(), base, base.Add(10*time.Second))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d items, want 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].TimeClosedUTC().Before(got[i-1].TimeClosedUTC()) {
			t.Fatalf("item %d out of order", i)
		}
	}
}

func TestDuplicateTimestampDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)

	q1 := quoteAt(t, ts, "1.2343", "1.2345")
	q2 := quoteAt(t, ts, "1.2344", "1.2346")

	if err := s.Save(ctx, q1); err != nil {
		t.Fatalf("Save q1: %v", err)
	}
	if err := s.Save(ctx, q2); err != nil {
		t.Fatalf("Save q2: %v", err)
	}

	got, err := s.GetRange(ctx, testKey(), ts.Add(-time.Minute), ts.Add(time.Minute))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
	gq := got[0].(basedata.Quote)
	if !gq.Ask.Equal(q2.Ask) {
		t.Errorf("got ask %s, want %s (last write should win)", gq.Ask, q2.Ask)
	}
}

func TestEarliestLatestAcrossMultiDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	var items []basedata.BaseDatum
	for i := 0; i < 48; i++ {
		items = append(items, quoteAt(t, base.Add(time.Duration(i)*time.Hour), "1.2000", "1.2002"))
	}
	if err := s.SaveBulk(ctx, items, false); err != nil {
		t.Fatalf("SaveBulk: %v", err)
	}

	earliest, ok, err := s.GetEarliestTime(ctx, testKey())
	if err != nil || !ok {
		t.Fatalf("GetEarliestTime: ok=%v err=%v", ok, err)
	}
	if !earliest.Equal(items[0].TimeClosedUTC()) {
		t.Errorf("earliest = %v, want %v", earliest, items[0].TimeClosedUTC())
	}

	latest, ok, err := s.GetLatestTime(ctx, testKey())
	if err != nil || !ok {
		t.Fatalf("GetLatestTime: ok=%v err=%v", ok, err)
	}
	if !latest.Equal(items[len(items)-1].TimeClosedUTC()) {
		t.Errorf("latest = %v, want %v", latest, items[len(items)-1].TimeClosedUTC())
	}
}

func TestGetAsOfAcrossDays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day1 := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	q1 := quoteAt(t, day1, "1.1000", "1.1002")
	q2 := quoteAt(t, day2, "1.2000", "1.2002")
	if err := s.SaveBulk(ctx, []basedata.BaseDatum{q1, q2}, false); err != nil {
		t.Fatalf("SaveBulk: %v", err)
	}

	asOf := day2.Add(-11 * time.Hour) // day2 @ 01:00
	got, ok, err := s.GetAsOf(ctx, testKey(), asOf)
	if err != nil {
		t.Fatalf("GetAsOf: %v", err)
	}
	if !ok {
		t.Fatal("GetAsOf: expected a result")
	}
	if !got.TimeClosedUTC().Equal(day1) {
		t.Errorf("GetAsOf = %v, want %v (day1@12:00)", got.TimeClosedUTC(), day1)
	}
}

func TestGetRangeOnEmptyArchive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	got, err := s.GetRange(ctx, testKey(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d items, want 0", len(got))
	}
	if _, ok, err := s.GetLatestTime(ctx, testKey()); err != nil || ok {
		t.Fatalf("GetLatestTime on empty archive: ok=%v err=%v", ok, err)
	}
}

func TestSaveSkipsUnclosedData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 7, 30, 8, 0, 0, 0, time.UTC)
	bar := basedata.Candle{
		Sym: testSymbol(),
		Res: basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1},
		Open: dec(t, "1"), High: dec(t, "1"), Low: dec(t, "1"), Close: dec(t, "1"),
		Volume: dec(t, "0"), TimeClosed: ts, Closed: false,
	}
	if err := s.Save(ctx, bar); err != nil {
		t.Fatalf("Save: %v", err)
	}

	key := Key{Vendor: "oanda", Market: basedata.MarketForex, Symbol: "EURUSD",
		Resolution: bar.Res, DataType: basedata.DataTypeCandle}
	got, err := s.GetRange(ctx, key, ts.Add(-time.Hour), ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d items, want 0 (open candle must not persist)", len(got))
	}
}

func TestGetCompressedBlobsReturnsVerbatimGzip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	q := quoteAt(t, ts, "1.2343", "1.2345")
	if err := s.Save(ctx, q); err != nil {
		t.Fatalf("Save: %v", err)
	}

	blobs, err := s.GetCompressedBlobs(ctx, []Key{testKey()}, ts.Add(-time.Hour), ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetCompressedBlobs: %v", err)
	}
	if len(blobs) != 1 {
		t.Fatalf("got %d blobs, want 1", len(blobs))
	}
	for path, blob := range blobs {
		if len(blob) == 0 {
			t.Errorf("blob for %s is empty", path)
		}
		// gzip magic bytes
		if blob[0] != 0x1f || blob[1] != 0x8b {
			t.Errorf("blob for %s is not gzip-framed", path)
		}
	}
}
