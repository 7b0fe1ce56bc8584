package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// SymbolInfoProvider supplies the per-symbol facts margin commitment and
// PnL accounting need: a vendor-reported intraday margin requirement where
// known, a fallback tick/point value, and the currency PnL is booked in.
// internal/product's Table implements it (cmd/runtime passes one to
// NewService); tests supply a fixed-table fake.
type SymbolInfoProvider interface {
	// IntradayMargin returns the vendor-quoted margin required to hold qty
	// units of symbolCode, if the vendor publishes one.
	IntradayMargin(symbolCode basedata.SymbolCode, qty decimal.Decimal) (decimal.Decimal, bool)
	// TickValue is the currency value of a one-unit price move per unit of
	// quantity, used both as the margin fallback and for PnL.
	TickValue(symbolCode basedata.SymbolCode) decimal.Decimal
	// PnLCurrency is the currency PnL for symbolCode is booked in.
	PnLCurrency(symbolCode basedata.SymbolCode) string
}

// commitMargin implements §4.8's margin commit rule: required margin is the
// vendor-reported intraday figure if known, else (qty * price) / leverage.
// On success it moves cash from available to used; on failure it leaves
// the ledger's cash fields untouched and returns an error whose message is
// exactly "Insufficient funds" (the OrderRejected reason text).
func (l *Ledger) commitMargin(symbolCode basedata.SymbolCode, qty, price decimal.Decimal) error {
	margin, ok := l.info.IntradayMargin(symbolCode, qty)
	if !ok {
		leverage := l.Leverage
		if leverage.IsZero() {
			leverage = decimal.NewFromInt(1)
		}
		margin = qty.Mul(price).Div(leverage)
	}

	if l.CashAvailable.LessThan(margin) {
		return fmt.Errorf("Insufficient funds")
	}

	l.CashAvailable = l.CashAvailable.Sub(margin)
	l.CashUsed = l.CashUsed.Add(margin)
	l.MarginUsed[symbolCode] = margin
	return nil
}

// releaseMargin returns symbolCode's committed margin to cash_available, per
// the first step of every reduce/close path.
func (l *Ledger) releaseMargin(symbolCode basedata.SymbolCode) {
	margin, ok := l.MarginUsed[symbolCode]
	if !ok {
		return
	}
	delete(l.MarginUsed, symbolCode)
	l.CashAvailable = l.CashAvailable.Add(margin)
	l.CashUsed = l.CashUsed.Sub(margin)
}
