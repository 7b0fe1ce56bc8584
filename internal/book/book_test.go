package book

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return v
}

func TestQuoteDrivesTopOfBook(t *testing.T) {
	r := NewRegistry()
	r.OnQuote(basedata.Quote{
		Sym: basedata.Symbol{Name: "EURUSD"}, Bid: d(t, "1.2348"), Ask: d(t, "1.2350"),
		BidSize: d(t, "5"), AskSize: d(t, "5"), Time: time.Now(),
	})

	bid, ok := r.TopOfBook("EURUSD", Bid)
	if !ok || !bid.Equal(d(t, "1.2348")) {
		t.Errorf("bid = %s (ok=%v), want 1.2348", bid, ok)
	}
	ask, ok := r.TopOfBook("EURUSD", Ask)
	if !ok || !ask.Equal(d(t, "1.2350")) {
		t.Errorf("ask = %s (ok=%v), want 1.2350", ask, ok)
	}
}

func TestBarSynthesizesLevelZeroWhenNoQuote(t *testing.T) {
	r := NewRegistry()
	r.OnBar(basedata.QuoteBar{
		Sym:      basedata.Symbol{Name: "ES"},
		BidClose: d(t, "4500.00"), AskClose: d(t, "4500.25"),
		TimeClosed: time.Now(), Closed: true,
	})

	bid, ok := r.TopOfBook("ES", Bid)
	if !ok || !bid.Equal(d(t, "4500.00")) {
		t.Errorf("bid = %s (ok=%v), want 4500.00", bid, ok)
	}
}

func TestBarDoesNotOverrideQuote(t *testing.T) {
	r := NewRegistry()
	r.OnQuote(basedata.Quote{
		Sym: basedata.Symbol{Name: "ES"}, Bid: d(t, "4500.00"), Ask: d(t, "4500.25"),
		BidSize: d(t, "1"), AskSize: d(t, "1"), Time: time.Now(),
	})
	r.OnBar(basedata.QuoteBar{
		Sym: basedata.Symbol{Name: "ES"}, BidClose: d(t, "9999"), AskClose: d(t, "9999"),
		TimeClosed: time.Now(), Closed: true,
	})

	bid, _ := r.TopOfBook("ES", Bid)
	if !bid.Equal(d(t, "4500.00")) {
		t.Errorf("bar arrival overrode quote-driven book: bid = %s", bid)
	}
}

func TestTickUpdatesLastPriceOnly(t *testing.T) {
	r := NewRegistry()
	r.OnTick(basedata.Tick{Sym: basedata.Symbol{Name: "AAPL"}, Price: d(t, "190.50"), Size: d(t, "100"), Time: time.Now()})

	if b := r.bookFor("AAPL"); len(b.bids) != 0 || len(b.asks) != 0 {
		t.Error("tick arrival should not populate book levels")
	}
	price, filled := r.MarketFill("AAPL", Ask, d(t, "10"), d(t, "0.01"))
	if !price.Equal(d(t, "190.50")) || !filled.Equal(d(t, "10")) {
		t.Errorf("MarketFill fallback = (%s, %s), want (190.50, 10)", price, filled)
	}
}

func TestMarketFillEmptyLadderFallsBackToLastPrice(t *testing.T) {
	r := NewRegistry()
	r.OnTick(basedata.Tick{Sym: basedata.Symbol{Name: "ES"}, Price: d(t, "4500"), Size: d(t, "1"), Time: time.Now()})

	price, filled := r.MarketFill("ES", Ask, d(t, "3"), d(t, "0.25"))
	if !price.Equal(d(t, "4500")) || !filled.Equal(d(t, "3")) {
		t.Errorf("got (%s, %s), want (4500, 3)", price, filled)
	}
}

func TestMarketFillNoDataReturnsZero(t *testing.T) {
	r := NewRegistry()
	price, filled := r.MarketFill("UNKNOWN", Ask, d(t, "1"), d(t, "0.01"))
	if !price.IsZero() || !filled.IsZero() {
		t.Errorf("got (%s, %s), want (0, 0) for a symbol with no data at all", price, filled)
	}
}

func TestLimitFillRejectsPastLimit(t *testing.T) {
	r := NewRegistry()
	r.OnQuote(basedata.Quote{
		Sym: basedata.Symbol{Name: "EURUSD"}, Bid: d(t, "1.2348"), Ask: d(t, "1.2350"),
		BidSize: d(t, "5"), AskSize: d(t, "5"), Time: time.Now(),
	})

	// Buy limit below the ask: nothing should fill.
	price, filled := r.LimitFill("EURUSD", Ask, d(t, "1"), d(t, "1.2340"), d(t, "0.0001"), true)
	if !filled.IsZero() {
		t.Errorf("expected zero fill for a buy limit below the market, got price=%s filled=%s", price, filled)
	}
}

func TestLimitFillFullyFillsWhenMarketable(t *testing.T) {
	r := NewRegistry()
	r.OnQuote(basedata.Quote{
		Sym: basedata.Symbol{Name: "EURUSD"}, Bid: d(t, "1.2348"), Ask: d(t, "1.2350"),
		BidSize: d(t, "5"), AskSize: d(t, "5"), Time: time.Now(),
	})

	price, filled := r.LimitFill("EURUSD", Ask, d(t, "3"), d(t, "1.2360"), d(t, "0.0001"), true)
	if !filled.Equal(d(t, "3")) {
		t.Errorf("filled = %s, want 3", filled)
	}
	if !price.Equal(d(t, "1.2350")) {
		t.Errorf("price = %s, want 1.2350", price)
	}
}

func TestMarketFillPartialWhenLadderShallow(t *testing.T) {
	r := NewRegistry()
	r.OnQuote(basedata.Quote{
		Sym: basedata.Symbol{Name: "EURUSD"}, Bid: d(t, "1.2348"), Ask: d(t, "1.2350"),
		BidSize: d(t, "5"), AskSize: d(t, "5"), Time: time.Now(),
	})

	price, filled := r.MarketFill("EURUSD", Ask, d(t, "8"), d(t, "0.0001"))
	if !filled.Equal(d(t, "5")) {
		t.Errorf("filled = %s, want 5 (ladder depth)", filled)
	}
	if !price.Equal(d(t, "1.2350")) {
		t.Errorf("price = %s, want 1.2350", price)
	}
}
