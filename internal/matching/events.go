package matching

import "github.com/shopspring/decimal"

// EventKind enumerates the events §4.7 requires the matching engine emit.
type EventKind int

const (
	EventOrderAccepted EventKind = iota
	EventOrderRejected
	EventOrderFilled
	EventOrderPartiallyFilled
)

func (k EventKind) String() string {
	switch k {
	case EventOrderAccepted:
		return "order_accepted"
	case EventOrderRejected:
		return "order_rejected"
	case EventOrderFilled:
		return "order_filled"
	case EventOrderPartiallyFilled:
		return "order_partially_filled"
	default:
		return "unknown"
	}
}

// Event is delivered on Engine.Events() for every order state transition.
// FillPrice/FillQuantity are populated only for the two fill kinds.
type Event struct {
	Kind         EventKind
	Order        Order
	FillPrice    decimal.Decimal
	FillQuantity decimal.Decimal
	Reason       string
}
