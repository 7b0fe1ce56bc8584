package codec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q): %v", s, err)
	}
	return d
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sym := basedata.Symbol{Name: "ES", Vendor: "rithmic", Market: basedata.MarketFutures}
	res1m := basedata.Resolution{Kind: basedata.ResolutionMinutes, Multiplier: 1}

	items := []basedata.BaseDatum{
		basedata.Candle{
			Sym: sym, Res: res1m,
			Open: mustDecimal(t, "4500.25"), High: mustDecimal(t, "4502.00"),
			Low: mustDecimal(t, "4499.50"), Close: mustDecimal(t, "4501.75"),
			Volume:     mustDecimal(t, "1200"),
			TimeClosed: time.Date(2026, 7, 30, 14, 31, 0, 0, time.UTC),
			Closed:     true,
		},
		basedata.Tick{
			Sym: sym, Price: mustDecimal(t, "4500.00"), Size: mustDecimal(t, "5"),
			Time: time.Date(2026, 7, 30, 14, 30, 0, 0, time.UTC),
		},
		basedata.Quote{
			Sym: sym, Bid: mustDecimal(t, "4499.75"), Ask: mustDecimal(t, "4500.25"),
			BidSize: mustDecimal(t, "10"), AskSize: mustDecimal(t, "8"),
			Time: time.Date(2026, 7, 30, 14, 30, 30, 0, time.UTC),
		},
		basedata.QuoteBar{
			Sym: sym, Res: res1m,
			BidOpen: mustDecimal(t, "4499.00"), BidHigh: mustDecimal(t, "4500.00"),
			BidLow: mustDecimal(t, "4498.75"), BidClose: mustDecimal(t, "4499.50"),
			AskOpen: mustDecimal(t, "4499.50"), AskHigh: mustDecimal(t, "4500.50"),
			AskLow: mustDecimal(t, "4499.25"), AskClose: mustDecimal(t, "4500.00"),
			Volume:     mustDecimal(t, "340"),
			TimeClosed: time.Date(2026, 7, 30, 14, 32, 0, 0, time.UTC),
			Closed:     true,
		},
		basedata.Fundamental{
			Sym:  sym,
			Time: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
			Fields: map[string]decimal.Decimal{
				"open_interest": mustDecimal(t, "182034"),
			},
		},
	}

	blob, err := Encode(items)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(got) != len(items) {
		t.Fatalf("got %d items, want %d", len(got), len(items))
	}

	// Decode sorts ascending by TimeClosedUTC: tick(14:30:00), quote(14:30:30),
	// candle(14:31:00), quotebar(14:32:00), fundamental(00:00:00 same day)
	// fundamental's TimeClosedUTC is midnight so it sorts first.
	wantOrder := []basedata.BaseDataType{
		basedata.DataTypeFundamental,
		basedata.DataTypeTick,
		basedata.DataTypeQuote,
		basedata.DataTypeCandle,
		basedata.DataTypeQuoteBar,
	}
	for i, dt := range wantOrder {
		if got[i].DataType() != dt {
			t.Errorf("item %d: got type %v, want %v", i, got[i].DataType(), dt)
		}
	}

	candle, ok := got[3].(basedata.Candle)
	if !ok {
		t.Fatalf("item 3 is not a Candle: %T", got[3])
	}
	if !candle.Close.Equal(mustDecimal(t, "4501.75")) {
		t.Errorf("candle.Close = %s, want 4501.75", candle.Close)
	}
	if candle.Sym != sym {
		t.Errorf("candle.Sym = %+v, want %+v", candle.Sym, sym)
	}
}

func TestDecodeRejectsTruncatedGzipHeader(t *testing.T) {
	_, err := Decode([]byte{0x1f, 0x8b}) // truncated gzip header, not a real stream
	if err == nil {
		t.Fatal("expected error decoding garbage input")
	}
}

func TestDecodeRejectsTruncatedGzipStream(t *testing.T) {
	items := []basedata.BaseDatum{
		basedata.Tick{
			Sym:   basedata.Symbol{Name: "ES", Vendor: "rithmic", Market: basedata.MarketFutures},
			Price: mustDecimal(t, "1"), Size: mustDecimal(t, "1"),
			Time: time.Now().UTC(),
		},
	}
	blob, err := Encode(items)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Decompress, truncate the payload, recompress would require gzip again;
	// simpler: truncate the compressed blob itself, which breaks gzip framing.
	truncated := blob[:len(blob)-4]
	if _, err := Decode(truncated); err == nil {
		t.Fatal("expected error decoding truncated block")
	}
}

func TestEncodeEmpty(t *testing.T) {
	blob, err := Encode(nil)
	if err != nil {
		t.Fatalf("Encode(nil): %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d items, want 0", len(got))
	}
}

func TestEncodeSortsInput(t *testing.T) {
	sym := basedata.Symbol{Name: "ES", Vendor: "rithmic", Market: basedata.MarketFutures}
	later := basedata.Tick{Sym: sym, Price: mustDecimal(t, "2"), Size: mustDecimal(t, "1"),
		Time: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	earlier := basedata.Tick{Sym: sym, Price: mustDecimal(t, "1"), Size: mustDecimal(t, "1"),
		Time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	blob, err := Encode([]basedata.BaseDatum{later, earlier})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got[0].TimeClosedUTC().Equal(earlier.Time) {
		t.Fatalf("first item time = %v, want %v", got[0].TimeClosedUTC(), earlier.Time)
	}
}
