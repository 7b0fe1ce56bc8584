// Package eventbus implements the strategy event bus (C9): a totally
// ordered, time-keyed buffer that forwards runtime events to the strategy
// in ascending time order, either immediately (unbuffered mode) or once
// per buffer interval (buffered mode).
package eventbus

import (
	"time"

	"github.com/ndrandal/fund-forge-go/internal/basedata"
	"github.com/ndrandal/fund-forge-go/internal/ledger"
	"github.com/ndrandal/fund-forge-go/internal/matching"
	"github.com/ndrandal/fund-forge-go/internal/subscription"
)

// Kind tags the exhaustive StrategyEvent variant set §4.9 enumerates.
// Tagged variants replace runtime type dispatch, per §9's design note.
type Kind int

const (
	KindTimeSlice Kind = iota
	KindOrderEvents
	KindPositionEvents
	KindDataSubscriptionEvent
	KindIndicatorEvent
	KindTimedEvent
	KindStrategyControls
	KindWarmUpComplete
	KindShutdownEvent
)

func (k Kind) String() string {
	switch k {
	case KindTimeSlice:
		return "time_slice"
	case KindOrderEvents:
		return "order_events"
	case KindPositionEvents:
		return "position_events"
	case KindDataSubscriptionEvent:
		return "data_subscription_event"
	case KindIndicatorEvent:
		return "indicator_event"
	case KindTimedEvent:
		return "timed_event"
	case KindStrategyControls:
		return "strategy_controls"
	case KindWarmUpComplete:
		return "warm_up_complete"
	case KindShutdownEvent:
		return "shutdown_event"
	default:
		return "unknown"
	}
}

// StrategyControl is the payload of a KindStrategyControls event: a
// runtime lifecycle command the strategy host itself reacts to (distinct
// from KindShutdownEvent, which is terminal).
type StrategyControl int

const (
	ControlPause StrategyControl = iota
	ControlResume
	ControlStop
)

// IndicatorEvent carries a named indicator's latest computed value. The
// indicator catalog itself is out of scope for this bus; it only
// transports whatever a strategy-side indicator registry publishes.
type IndicatorEvent struct {
	Name  string
	Value basedata.BaseDatum
}

// TimedEvent is a scheduled wakeup a strategy registered, firing once At
// is reached.
type TimedEvent struct {
	Name string
	At   time.Time
}

// Event is one entry in the bus. Only the field matching Kind is
// meaningful; the rest are left zero.
type Event struct {
	Kind Kind
	Time time.Time

	TimeSlice            []basedata.BaseDatum
	OrderEvent           matching.Event
	PositionEvent        ledger.PositionEvent
	DataSubscriptionEvent subscription.Event
	Indicator            IndicatorEvent
	Timed                TimedEvent
	Control              StrategyControl
	ShutdownReason        string
}
