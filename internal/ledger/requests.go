package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
)

// RequestKind enumerates the synchronous queries an Actor answers via its
// CallbackRequest message, mirroring the original LedgerRequest enum.
type RequestKind int

const (
	RequestIsLong RequestKind = iota
	RequestIsShort
	RequestIsFlat
	RequestPositionSize
	RequestBookedPnL
	RequestOpenPnL
	RequestInDrawdown
	RequestInProfit
	RequestPaperExit
)

// Request is a synchronous query sent through an Actor's mailbox. SymbolCode
// is required for every kind; Side and Price are only read by
// RequestPaperExit.
type Request struct {
	Kind       RequestKind
	SymbolCode basedata.SymbolCode
	Side       Side
	Price      decimal.Decimal
	Tag        string
}

// Response carries the answer to a Request. Only the field matching the
// Request's Kind is meaningful.
type Response struct {
	Bool    bool
	Decimal decimal.Decimal
	Event   PositionEvent
	Exited  bool
}

// Answer evaluates req against the ledger's current state. now is the
// wall/simulated time a RequestPaperExit is booked at; it must only be
// called from the goroutine that owns l (see Actor).
func (l *Ledger) Answer(req Request, now time.Time) Response {
	switch req.Kind {
	case RequestIsLong:
		return Response{Bool: l.HasSide(req.SymbolCode, Long)}
	case RequestIsShort:
		return Response{Bool: l.HasSide(req.SymbolCode, Short)}
	case RequestIsFlat:
		return Response{Bool: l.IsFlat(req.SymbolCode)}
	case RequestPositionSize:
		return Response{Decimal: l.PositionSize(req.SymbolCode)}
	case RequestBookedPnL:
		return Response{Decimal: l.BookedPnL(req.SymbolCode)}
	case RequestOpenPnL:
		return Response{Decimal: l.OpenPnL(req.SymbolCode)}
	case RequestInDrawdown:
		return Response{Bool: l.InDrawdown(req.SymbolCode)}
	case RequestInProfit:
		return Response{Bool: l.InProfit(req.SymbolCode)}
	case RequestPaperExit:
		ev, ok := l.PaperExitPosition(req.SymbolCode, req.Side, now, req.Price, req.Tag)
		return Response{Event: ev, Exited: ok}
	default:
		return Response{}
	}
}
