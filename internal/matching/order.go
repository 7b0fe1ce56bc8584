// Package matching implements the matching engine (C7): admission checks,
// trigger conditions, and VWAP fill estimation for simulated order types,
// run on every price-book update in backtest and live-paper modes.
package matching

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// Side is the order's directional intent. A Buy fills against the ask
// ladder; a Sell fills against the bid ladder.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Type enumerates the order types §4.7 specifies matching semantics for.
type Type int

const (
	Market Type = iota
	Limit
	StopMarket
	MarketIfTouched
	StopLimit
	EnterLong
	EnterShort
	ExitLong
	ExitShort
)

func (t Type) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case StopMarket:
		return "stop_market"
	case MarketIfTouched:
		return "market_if_touched"
	case StopLimit:
		return "stop_limit"
	case EnterLong:
		return "enter_long"
	case EnterShort:
		return "enter_short"
	case ExitLong:
		return "exit_long"
	case ExitShort:
		return "exit_short"
	default:
		return "unknown"
	}
}

// TIFKind selects time-in-force evaluation.
type TIFKind int

const (
	GTC TIFKind = iota
	Day
	IOC
	FOK
	Time
)

// TIF bundles a kind with the fields Day/Time evaluation needs.
type TIF struct {
	Kind TIFKind
	At   time.Time      // Time: the wall/simulated instant the order expires
	Loc  *time.Location // Day/Time: the calendar the expiry is evaluated in
}

// Status is an order's lifecycle state.
type Status int

const (
	StatusAccepted Status = iota
	StatusRejected
	StatusFilled
	StatusPartiallyFilled
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusFilled:
		return "filled"
	case StatusPartiallyFilled:
		return "partially_filled"
	default:
		return "unknown"
	}
}

// Order is one strategy order under management by the matching engine.
type Order struct {
	ID         string
	Brokerage  string
	Account    string
	Symbol     basedata.Symbol
	SymbolCode basedata.SymbolCode
	Type       Type
	Side       Side

	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal

	LimitPrice decimal.Decimal // Limit, StopLimit
	StopPrice  decimal.Decimal // StopMarket, MarketIfTouched, StopLimit

	TIF       TIF
	CreatedAt time.Time

	Status       Status
	RejectReason string
}

// Remaining is the unfilled quantity still working.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}
