package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/book"
)

func dd(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return v
}

type fakePositions struct{ held map[Side]bool }

func (f fakePositions) HasPosition(account string, code basedata.SymbolCode, side Side) bool {
	return f.held[side]
}

func testSymbol() basedata.Symbol {
	return basedata.Symbol{Name: "EURUSD", Vendor: "oanda", Market: basedata.MarketForex}
}

// TestBuyLimitAboveAskIsRejected directly implements spec §8 scenario 6.
func TestBuyLimitAboveAskIsRejected(t *testing.T) {
	reg := book.NewRegistry()
	reg.OnQuote(basedata.Quote{Sym: testSymbol(), Bid: dd(t, "1.2348"), Ask: dd(t, "1.2350"), BidSize: dd(t, "100"), AskSize: dd(t, "100")})

	e := New(reg, nil, dd(t, "0.0001"), nil)
	o := &Order{ID: "o1", Symbol: testSymbol(), Type: Limit, Side: Buy, Quantity: dd(t, "1"), LimitPrice: dd(t, "1.2360")}

	err := e.Submit(o, time.Now())
	if err == nil {
		t.Fatal("expected rejection")
	}
	if o.Status != StatusRejected {
		t.Fatalf("status = %v, want Rejected", o.Status)
	}
	if o.RejectReason != "Buy Limit Price Must Be At or Below Market Price" {
		t.Errorf("reject reason = %q", o.RejectReason)
	}
	if len(e.OpenOrders(testSymbol().Name)) != 0 {
		t.Error("rejected order must not remain open")
	}
}

// TestStopMarketArmsAndFires directly implements spec §8 scenario 7.
func TestStopMarketArmsAndFires(t *testing.T) {
	reg := book.NewRegistry()
	reg.OnQuote(basedata.Quote{Sym: testSymbol(), Bid: dd(t, "100"), Ask: dd(t, "100.1"), BidSize: dd(t, "10"), AskSize: dd(t, "10")})

	e := New(reg, nil, dd(t, "0.01"), nil)
	o := &Order{ID: "o1", Symbol: testSymbol(), Type: StopMarket, Side: Buy, Quantity: dd(t, "1"), StopPrice: dd(t, "101")}

	if err := e.Submit(o, time.Now()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(e.OpenOrders(testSymbol().Name)) != 1 {
		t.Fatal("stop order should rest until triggered")
	}

	reg.OnQuote(basedata.Quote{Sym: testSymbol(), Bid: dd(t, "100.9"), Ask: dd(t, "101.0"), BidSize: dd(t, "10"), AskSize: dd(t, "10")})
	e.OnBookUpdate(testSymbol().Name, time.Now())

	if len(e.OpenOrders(testSymbol().Name)) != 0 {
		t.Fatal("triggered stop order should have filled and closed")
	}
}

func TestExitLongRequiresHeldPosition(t *testing.T) {
	reg := book.NewRegistry()
	reg.OnQuote(basedata.Quote{Sym: testSymbol(), Bid: dd(t, "100"), Ask: dd(t, "100.1"), BidSize: dd(t, "10"), AskSize: dd(t, "10")})

	e := New(reg, fakePositions{held: map[Side]bool{}}, dd(t, "0.01"), nil)
	o := &Order{ID: "o1", Symbol: testSymbol(), Type: ExitLong, Side: Sell, Quantity: dd(t, "1")}

	if err := e.Submit(o, time.Now()); err == nil {
		t.Fatal("expected rejection: no long position held")
	}
	if o.RejectReason == "" {
		t.Error("expected a reject reason")
	}
}

func TestIOCCancelsUnfilledRemainder(t *testing.T) {
	reg := book.NewRegistry()
	reg.OnQuote(basedata.Quote{Sym: testSymbol(), Bid: dd(t, "100"), Ask: dd(t, "100.1"), BidSize: dd(t, "2"), AskSize: dd(t, "2")})

	e := New(reg, nil, dd(t, "0.01"), nil)
	o := &Order{
		ID: "o1", Symbol: testSymbol(), Type: Market, Side: Buy, Quantity: dd(t, "5"),
		TIF: TIF{Kind: IOC},
	}
	if err := e.Submit(o, time.Now()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.Status != StatusPartiallyFilled {
		t.Fatalf("status = %v, want PartiallyFilled (ladder only has depth 2 of 5)", o.Status)
	}
	if len(e.OpenOrders(testSymbol().Name)) != 0 {
		t.Fatal("IOC remainder should not rest")
	}
}

func TestFOKRejectsWhenLadderCannotFillInFull(t *testing.T) {
	reg := book.NewRegistry()
	reg.OnQuote(basedata.Quote{Sym: testSymbol(), Bid: dd(t, "100"), Ask: dd(t, "100.1"), BidSize: dd(t, "1"), AskSize: dd(t, "1")})

	e := New(reg, nil, dd(t, "0.01"), nil)
	o := &Order{
		ID: "o1", Symbol: testSymbol(), Type: Market, Side: Buy, Quantity: dd(t, "5"),
		TIF: TIF{Kind: FOK},
	}
	if err := e.Submit(o, time.Now()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.Status != StatusRejected {
		t.Fatalf("status = %v, want Rejected (FOK, insufficient depth)", o.Status)
	}
	if !o.FilledQuantity.IsZero() {
		t.Error("FOK must not leave a partial fill behind")
	}
}

func TestDayOrderExpiresOnCalendarRollover(t *testing.T) {
	reg := book.NewRegistry()
	reg.OnQuote(basedata.Quote{Sym: testSymbol(), Bid: dd(t, "100"), Ask: dd(t, "100.1"), BidSize: dd(t, "10"), AskSize: dd(t, "10")})

	e := New(reg, nil, dd(t, "0.01"), nil)
	created := time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)
	o := &Order{
		ID: "o1", Symbol: testSymbol(), Type: Limit, Side: Buy, Quantity: dd(t, "1"),
		LimitPrice: dd(t, "99"), TIF: TIF{Kind: Day, Loc: time.UTC},
	}
	if err := e.Submit(o, created); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(e.OpenOrders(testSymbol().Name)) != 1 {
		t.Fatal("non-marketable limit order should rest")
	}

	nextDay := created.Add(2 * time.Hour)
	e.OnBookUpdate(testSymbol().Name, nextDay)
	if len(e.OpenOrders(testSymbol().Name)) != 0 {
		t.Fatal("Day order should expire once the calendar date rolls over")
	}
}
