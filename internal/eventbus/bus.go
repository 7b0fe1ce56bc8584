package eventbus

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Bus is the event bus (C9). In unbuffered mode, Add immediately sorts and
// forwards; in buffered mode, Add only enqueues and the caller drives
// Forward on its own interval (§4.9: "in buffered mode, the engine calls
// forward once per buffer interval; in unbuffered mode, immediately after
// each add").
type Bus struct {
	mu       sync.Mutex
	buffered bool
	pending  []Event

	lastForwarded time.Time
	haveForwarded bool

	out chan Event
	log *zap.Logger
}

// Config parameterizes a Bus.
type Config struct {
	Buffered   bool
	BufferSize int // depth of the output channel; default 1024
}

// New builds a Bus. Callers must drain Events() or Forward will drop
// events once the output channel fills.
func New(cfg Config, log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1024
	}
	return &Bus{
		buffered: cfg.Buffered,
		out:      make(chan Event, size),
		log:      log,
	}
}

// Events returns the channel events are delivered on. Each Forward call
// delivers its batch in ascending time order; the bus does not reorder
// across calls, so an event added after a Forward with a time earlier than
// that Forward's batch is delivered after that batch.
func (b *Bus) Events() <-chan Event { return b.out }

// Add enqueues event at time t (t overwrites event.Time). In unbuffered
// mode this also forwards immediately; in buffered mode the event waits
// for the next Forward call.
func (b *Bus) Add(t time.Time, event Event) {
	event.Time = t

	b.mu.Lock()
	b.pending = append(b.pending, event)
	unbuffered := !b.buffered
	b.mu.Unlock()

	if unbuffered {
		b.Forward(t)
	}
}

// Forward drains every pending event, emits it to Events() in ascending
// (time, insertion-order) order, and clears the buffer. now is recorded as
// the forward watermark for the cross-call monotonicity check; it need not
// exceed every pending event's own time (a caller may forward early in
// buffered mode), but a Forward call whose own now regresses relative to
// the last one is logged as a contract violation.
func (b *Bus) Forward(now time.Time) {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	if b.haveForwarded && now.Before(b.lastForwarded) {
		b.log.Warn("eventbus: forward called with a time behind the previous forward",
			zap.Time("now", now), zap.Time("previous", b.lastForwarded))
	}
	b.lastForwarded = now
	b.haveForwarded = true
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Time.Before(batch[j].Time) })

	for _, ev := range batch {
		select {
		case b.out <- ev:
		default:
			b.log.Warn("eventbus: output channel full, dropping event", zap.String("kind", ev.Kind.String()))
		}
	}
}

// RunTicker drives Forward once per interval using now() as the forward
// watermark, for live/unbuffered-adjacent use where nothing else is
// calling Forward explicitly. Backtests should call Forward directly from
// the replay loop instead, so the watermark tracks simulated time.
func (b *Bus) RunTicker(ctx context.Context, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Forward(now())
		}
	}
}
