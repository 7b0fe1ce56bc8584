package subscription

import "github.com/ndrandal/fund-forge-go/internal/basedata"

// EventKind enumerates the subscription lifecycle events C6 emits.
type EventKind int

const (
	EventSubscribed EventKind = iota
	EventUnsubscribed
	EventFailedToSubscribe
)

func (k EventKind) String() string {
	switch k {
	case EventSubscribed:
		return "subscribed"
	case EventUnsubscribed:
		return "unsubscribed"
	case EventFailedToSubscribe:
		return "failed_to_subscribe"
	default:
		return "unknown"
	}
}

// Event is delivered on Handler.Events() whenever a subscription is added,
// removed, or rejected. Reason is populated only for EventFailedToSubscribe.
type Event struct {
	Kind   EventKind
	Sub    basedata.DataSubscription
	Reason string
}
