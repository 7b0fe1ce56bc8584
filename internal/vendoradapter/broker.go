package vendoradapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndrandal/fund-forge-go/internal/matching"
)

// BrokerAdapter is the live-trading counterpart to VendorAdapter (§6): it
// accepts order requests and emits order update events and periodic
// account/position snapshots. Backtest and paper modes never construct
// one — the matching engine (C7) and ledger (C8) stand in for it entirely.
type BrokerAdapter interface {
	// Name identifies the brokerage for logging and ledger account keys.
	Name() string

	// Submit sends req to the brokerage. The resulting OrderUpdateEvent(s)
	// arrive asynchronously on the channel registered by Subscribe, not as
	// a return value here — a live broker's ack and fill are genuinely
	// separate events in time.
	Submit(ctx context.Context, req OrderRequest) error

	// Subscribe begins delivering this brokerage's order update events and
	// periodic account/position snapshots to out.
	Subscribe(ctx context.Context, account string, out chan<- OrderUpdateEvent) error

	// Unsubscribe stops delivery for account.
	Unsubscribe(account string) error
}

// OrderRequestKind tags an OrderRequest's variant.
type OrderRequestKind int

const (
	RequestCreate OrderRequestKind = iota
	RequestCancel
	RequestUpdate
	RequestCancelAll
	RequestFlattenAllFor
)

func (k OrderRequestKind) String() string {
	switch k {
	case RequestCreate:
		return "create"
	case RequestCancel:
		return "cancel"
	case RequestUpdate:
		return "update"
	case RequestCancelAll:
		return "cancel_all"
	case RequestFlattenAllFor:
		return "flatten_all_for"
	default:
		return "unknown"
	}
}

// OrderRequest is a tagged-variant outbound instruction to a BrokerAdapter.
// Only the fields relevant to Kind are populated; see the Kind-specific
// comments below.
type OrderRequest struct {
	Kind OrderRequestKind

	// Create, Cancel, Update
	OrderID string
	Order   matching.Order // Create: the full order; Update: the new terms

	// CancelAll, FlattenAllFor
	Brokerage string
	Account   string
	Symbol    string // FlattenAllFor only; empty means every symbol on the account
}

// OrderUpdateKind tags an OrderUpdateEvent's variant.
type OrderUpdateKind int

const (
	UpdateAccepted OrderUpdateKind = iota
	UpdateFilled
	UpdatePartiallyFilled
	UpdateCancelled
	UpdateRejected
	UpdateUpdated
	UpdateUpdateRejected
)

func (k OrderUpdateKind) String() string {
	switch k {
	case UpdateAccepted:
		return "accepted"
	case UpdateFilled:
		return "filled"
	case UpdatePartiallyFilled:
		return "partially_filled"
	case UpdateCancelled:
		return "cancelled"
	case UpdateRejected:
		return "rejected"
	case UpdateUpdated:
		return "updated"
	case UpdateUpdateRejected:
		return "update_rejected"
	default:
		return "unknown"
	}
}

// OrderUpdateEvent is a tagged-variant inbound notification from a
// BrokerAdapter. Only the fields relevant to Kind are populated.
type OrderUpdateEvent struct {
	Kind    OrderUpdateKind
	OrderID string
	At      time.Time

	FillPrice    decimal.Decimal // Filled, PartiallyFilled
	FillQuantity decimal.Decimal // Filled, PartiallyFilled
	Reason       string          // Rejected, UpdateRejected
}
