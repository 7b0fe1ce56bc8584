package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/matching"
)

// FillIntake is one order fill handed to UpdateOrCreatePosition. Side is
// the matching order's side (Buy reduces a short / opens or adds long;
// Sell reduces a long / opens or adds short) — matching's own Side, not
// ledger.Side, since the ledger decides the resulting position's side.
type FillIntake struct {
	SymbolName string
	SymbolCode basedata.SymbolCode
	OrderID    string
	Quantity   decimal.Decimal
	Side       matching.Side
	Time       time.Time
	Price      decimal.Decimal
	Tag        string
}

// UpdateOrCreatePosition implements §4.8's order-fill intake algorithm: an
// opposing-side fill reduces (and, if it over-fills, closes then reopens
// on the other side) the existing position; a same-side fill adds to it;
// no existing position opens a fresh one. Returns the position events
// produced (PositionOpened/Increased/Reduced/Closed, in the order the
// spec's reverse-on-opposing-entry scenario requires: close first, then
// open) and, if a margin commit failed, the rejection that stopped intake.
func (l *Ledger) UpdateOrCreatePosition(f FillIntake) ([]PositionEvent, *RejectedEvent) {
	var events []PositionEvent
	remaining := f.Quantity

	if existing, ok := l.positions[f.SymbolCode]; ok {
		reducing := (existing.Side == Long && f.Side == matching.Sell) ||
			(existing.Side == Short && f.Side == matching.Buy)

		if reducing {
			remaining = f.Quantity.Sub(existing.QuantityOpen)
			if l.Mode.simulatesLocally() {
				l.releaseMargin(f.SymbolCode)
			}

			closeQty := f.Quantity
			if closeQty.GreaterThan(existing.QuantityOpen) {
				closeQty = existing.QuantityOpen
			}
			ev := existing.ReducePositionSize(f.Price, closeQty, f.Time, f.Tag)

			if ev.Kind == PositionReduced {
				if l.Mode.simulatesLocally() {
					// Re-commit margin on the remainder; this cannot fail,
					// since releaseMargin just freed at least this much.
					_ = l.commitMargin(f.SymbolCode, existing.QuantityOpen, existing.AveragePrice)
				}
				l.positions[f.SymbolCode] = existing
			} else {
				l.positionsClosed[f.SymbolCode] = append(l.positionsClosed[f.SymbolCode], existing)
				delete(l.positions, f.SymbolCode)
			}

			if l.Mode.simulatesLocally() || l.IsSimulatingPnL {
				l.symbolClosedPnL[f.SymbolCode] = l.symbolClosedPnL[f.SymbolCode].Add(ev.BookedPnL)
				l.TotalBookedPnL = l.TotalBookedPnL.Add(ev.BookedPnL)
			}
			if l.Mode.simulatesLocally() {
				l.CashAvailable = l.CashAvailable.Add(ev.BookedPnL)
			}
			if ev.Kind == PositionClosed {
				l.recordClose(ev.BookedPnL)
			}
			l.recomputeCashValue()
			events = append(events, ev)
		} else {
			if l.Mode.simulatesLocally() {
				if err := l.commitMargin(f.SymbolCode, f.Quantity, f.Price); err != nil {
					return events, &RejectedEvent{
						Brokerage: l.Brokerage, Account: l.Account, SymbolName: f.SymbolName,
						SymbolCode: f.SymbolCode, OrderID: f.OrderID, Reason: err.Error(),
						Tag: f.Tag, Time: f.Time,
					}
				}
			}
			ev := existing.AddToPosition(f.Price, f.Quantity, f.Time, f.Tag)
			l.positions[f.SymbolCode] = existing
			l.recomputeCashValue()
			events = append(events, ev)
			remaining = decimal.Zero
		}
	}

	if remaining.GreaterThan(decimal.Zero) {
		if l.Mode.simulatesLocally() {
			if err := l.commitMargin(f.SymbolCode, f.Quantity, f.Price); err != nil {
				return events, &RejectedEvent{
					Brokerage: l.Brokerage, Account: l.Account, SymbolName: f.SymbolName,
					SymbolCode: f.SymbolCode, OrderID: f.OrderID, Reason: err.Error(),
					Tag: f.Tag, Time: f.Time,
				}
			}
		}

		side := Long
		if f.Side == matching.Sell {
			side = Short
		}

		tickValue := decimal.NewFromInt(1)
		currency := l.Currency
		if l.info != nil {
			tickValue = l.info.TickValue(f.SymbolCode)
			currency = l.info.PnLCurrency(f.SymbolCode)
		}

		id := l.GenerateID(f.SymbolName, side)
		if existing, ok := l.symbolCodeMap[f.SymbolName]; !ok || !containsCode(existing, f.SymbolCode) {
			if f.SymbolName != string(f.SymbolCode) {
				l.symbolCodeMap[f.SymbolName] = append(l.symbolCodeMap[f.SymbolName], f.SymbolCode)
			}
		}

		pos := NewPosition(id, f.SymbolName, f.SymbolCode, l.Brokerage, l.Account, side, remaining, f.Price, tickValue, currency, f.Tag, f.Time)
		l.positions[f.SymbolCode] = pos
		if _, ok := l.positionsClosed[f.SymbolCode]; !ok {
			l.positionsClosed[f.SymbolCode] = nil
		}

		l.recomputeCashValue()
		events = append(events, PositionEvent{
			Kind: PositionOpened, PositionID: id, Brokerage: l.Brokerage,
			Account: l.Account, SymbolCode: f.SymbolCode, Tag: f.Tag, Time: f.Time,
		})
	}

	return events, nil
}

func containsCode(codes []basedata.SymbolCode, code basedata.SymbolCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// PaperExitPosition closes symbolCode's entire open position at price, for
// strategy-initiated flat calls (the spec's PaperExitPosition callback
// request). No-op in Live mode or if side does not match the open position.
func (l *Ledger) PaperExitPosition(symbolCode basedata.SymbolCode, side Side, now time.Time, price decimal.Decimal, tag string) (PositionEvent, bool) {
	if !l.Mode.simulatesLocally() {
		return PositionEvent{}, false
	}
	p, ok := l.positions[symbolCode]
	if !ok || p.Side != side {
		return PositionEvent{}, false
	}
	return l.paperExit(symbolCode, now, price, tag)
}
