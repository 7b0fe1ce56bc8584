package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/matching"
)

type fakeInfo struct {
	margin    decimal.Decimal
	hasMargin bool
	tickValue decimal.Decimal
	currency  string
}

func (f fakeInfo) IntradayMargin(basedata.SymbolCode, decimal.Decimal) (decimal.Decimal, bool) {
	return f.margin, f.hasMargin
}
func (f fakeInfo) TickValue(basedata.SymbolCode) decimal.Decimal { return f.tickValue }
func (f fakeInfo) PnLCurrency(basedata.SymbolCode) string        { return f.currency }

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return v
}

func newTestLedger(t *testing.T, startingCash string) *Ledger {
	info := fakeInfo{hasMargin: false, tickValue: decimal.NewFromInt(1), currency: "USD"}
	return New(Config{
		Brokerage: "oanda", Account: "acct1", Currency: "USD",
		Mode: Backtest, Leverage: decimal.NewFromInt(1),
		StartingCash: d(t, startingCash),
	}, info, nil)
}

// TestReverseOnOpposingEntry directly implements spec §8 scenario 8: a
// Long 2 @ 100 position reversed by a Sell 3 closes the long and opens a
// short 1, in that event order, with cash_value staying in balance.
func TestReverseOnOpposingEntry(t *testing.T) {
	l := newTestLedger(t, "100000")
	code := basedata.SymbolCode("ESZ24")

	events, rejected := l.UpdateOrCreatePosition(FillIntake{
		SymbolName: "ES", SymbolCode: code, OrderID: "o1",
		Quantity: d(t, "2"), Side: matching.Buy, Time: time.Now(), Price: d(t, "100"),
	})
	if rejected != nil {
		t.Fatalf("opening fill rejected: %+v", rejected)
	}
	if len(events) != 1 || events[0].Kind != PositionOpened {
		t.Fatalf("expected a single PositionOpened event, got %+v", events)
	}
	if !l.IsLong(code) {
		t.Fatal("expected an open long position")
	}

	events, rejected = l.UpdateOrCreatePosition(FillIntake{
		SymbolName: "ES", SymbolCode: code, OrderID: "o2",
		Quantity: d(t, "3"), Side: matching.Sell, Time: time.Now(), Price: d(t, "105"),
	})
	if rejected != nil {
		t.Fatalf("reversing fill rejected: %+v", rejected)
	}
	if len(events) != 2 {
		t.Fatalf("expected close then open, got %d events: %+v", len(events), events)
	}
	if events[0].Kind != PositionClosed {
		t.Errorf("first event = %v, want PositionClosed", events[0].Kind)
	}
	if events[1].Kind != PositionOpened {
		t.Errorf("second event = %v, want PositionOpened", events[1].Kind)
	}
	if !l.IsShort(code) {
		t.Fatal("expected an open short position after the reversal")
	}
	if got := l.PositionSize(code); !got.Equal(d(t, "1")) {
		t.Errorf("short size = %s, want 1", got)
	}
	if !l.CashValue.Equal(l.CashUsed.Add(l.CashAvailable)) {
		t.Errorf("cash_value invariant broken: %s != %s + %s", l.CashValue, l.CashUsed, l.CashAvailable)
	}
}

// TestMarginRejection directly implements spec §8 scenario 10.
func TestMarginRejection(t *testing.T) {
	l := newTestLedger(t, "100")
	l.info = fakeInfo{hasMargin: true, margin: d(t, "150"), tickValue: decimal.NewFromInt(1), currency: "USD"}

	code := basedata.SymbolCode("ESZ24")
	events, rejected := l.UpdateOrCreatePosition(FillIntake{
		SymbolName: "ES", SymbolCode: code, OrderID: "o1",
		Quantity: d(t, "1"), Side: matching.Buy, Time: time.Now(), Price: d(t, "100"),
	})
	if rejected == nil {
		t.Fatal("expected a margin rejection")
	}
	if rejected.Reason != "Insufficient funds" {
		t.Errorf("reject reason = %q, want %q", rejected.Reason, "Insufficient funds")
	}
	if len(events) != 0 {
		t.Errorf("expected no position events, got %+v", events)
	}
	if !l.IsFlat(code) {
		t.Error("no position should have been created")
	}
}

func TestMarkToMarketUpdatesOpenPnLAndCashValue(t *testing.T) {
	l := newTestLedger(t, "100000")
	code := basedata.SymbolCode("EURUSD")

	_, rejected := l.UpdateOrCreatePosition(FillIntake{
		SymbolName: "EURUSD", SymbolCode: code, OrderID: "o1",
		Quantity: d(t, "10"), Side: matching.Buy, Time: time.Now(), Price: d(t, "1.2000"),
	})
	if rejected != nil {
		t.Fatalf("open rejected: %+v", rejected)
	}

	sym := basedata.Symbol{Name: "EURUSD"}
	tick := basedata.Tick{Sym: sym, Price: d(t, "1.2050"), Time: time.Now()}
	l.TimesliceUpdate([]basedata.BaseDatum{tick}, time.Now())

	wantPnL := d(t, "1.2050").Sub(d(t, "1.2000")).Mul(d(t, "10"))
	if got := l.OpenPnL(code); !got.Equal(wantPnL) {
		t.Errorf("open pnl = %s, want %s", got, wantPnL)
	}
	if !l.CashValue.Equal(l.CashUsed.Add(l.CashAvailable)) {
		t.Error("cash_value invariant broken after mark-to-market")
	}
}

func TestAddToPositionAveragesPrice(t *testing.T) {
	l := newTestLedger(t, "100000")
	code := basedata.SymbolCode("ESZ24")

	l.UpdateOrCreatePosition(FillIntake{
		SymbolName: "ES", SymbolCode: code, Quantity: d(t, "1"),
		Side: matching.Buy, Time: time.Now(), Price: d(t, "100"),
	})
	events, rejected := l.UpdateOrCreatePosition(FillIntake{
		SymbolName: "ES", SymbolCode: code, Quantity: d(t, "1"),
		Side: matching.Buy, Time: time.Now(), Price: d(t, "110"),
	})
	if rejected != nil {
		t.Fatalf("add rejected: %+v", rejected)
	}
	if len(events) != 1 || events[0].Kind != PositionIncreased {
		t.Fatalf("expected PositionIncreased, got %+v", events)
	}
	if got := l.PositionSize(code); !got.Equal(d(t, "2")) {
		t.Errorf("size = %s, want 2", got)
	}
}

func TestFlattenAccountClosesAllPositions(t *testing.T) {
	l := newTestLedger(t, "100000")
	code := basedata.SymbolCode("ESZ24")
	l.UpdateOrCreatePosition(FillIntake{
		SymbolName: "ES", SymbolCode: code, Quantity: d(t, "1"),
		Side: matching.Buy, Time: time.Now(), Price: d(t, "100"),
	})

	l.FlattenAccount(time.Now(), map[string]decimal.Decimal{"ES": d(t, "105")})

	if !l.IsFlat(code) {
		t.Fatal("expected the position to be flattened")
	}
	if len(l.positionsClosed[code]) != 1 {
		t.Fatalf("expected one closed position, got %d", len(l.positionsClosed[code]))
	}
}
