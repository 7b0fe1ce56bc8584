package feedio

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/eventbus"
)

var allKinds = []eventbus.Kind{
	eventbus.KindTimeSlice, eventbus.KindOrderEvents, eventbus.KindPositionEvents,
	eventbus.KindDataSubscriptionEvent, eventbus.KindIndicatorEvent, eventbus.KindTimedEvent,
	eventbus.KindStrategyControls, eventbus.KindWarmUpComplete, eventbus.KindShutdownEvent,
}

// ParseKind resolves a control message's kind name (eventbus.Kind's own
// String() form, e.g. "order_events") back to a Kind.
func ParseKind(s string) (eventbus.Kind, bool) {
	for _, k := range allKinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// wireEvent is the JSON shape an eventbus.Event is flattened to; only the
// field matching Kind is populated, mirroring Event's own "only one
// variant field is meaningful" contract.
type wireEvent struct {
	Kind string      `json:"kind"`
	Time int64       `json:"time_unix_ns"`
	Data eventbus.Event `json:"data"`
}

func encode(e eventbus.Event) ([]byte, error) {
	return json.Marshal(wireEvent{Kind: e.Kind.String(), Time: e.Time.UnixNano(), Data: e})
}

// Manager tracks connected clients and fans out eventbus.Events to every
// client whose filter admits that event's kind, mirroring the teacher's
// Manager.Broadcast lazy-single-encode-then-fan-out shape (here there is
// only one wire format, so the encode happens exactly once per event
// regardless of subscriber count).
type Manager struct {
	mu         sync.RWMutex
	clients    map[uint64]*Client
	bufferSize int
	log        *zap.Logger
}

// NewManager builds a Manager whose clients each get a bufferSize-deep
// send queue.
func NewManager(bufferSize int, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Manager{clients: make(map[uint64]*Client), bufferSize: bufferSize, log: log}
}

// Register admits a newly upgraded websocket connection.
func (m *Manager) Register(conn *websocket.Conn) *Client {
	c := NewClient(conn, m.bufferSize)
	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	m.log.Info("feedio: client connected", zap.Uint64("id", c.ID), zap.Stringer("remote", conn.RemoteAddr()))
	return c
}

// Unregister removes and closes a client.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	delete(m.clients, c.ID)
	m.mu.Unlock()
	c.Close()
	m.log.Info("feedio: client disconnected", zap.Uint64("id", c.ID), zap.Uint64("dropped", c.Dropped))
}

// Broadcast encodes e once and enqueues it on every client whose filter
// admits e.Kind.
func (m *Manager) Broadcast(e eventbus.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.clients) == 0 {
		return
	}
	var encoded []byte
	var encodeErr error
	var once sync.Once
	for _, c := range m.clients {
		if !c.Wants(e.Kind) {
			continue
		}
		once.Do(func() { encoded, encodeErr = encode(e) })
		if encodeErr != nil {
			m.log.Warn("feedio: encode event failed", zap.Error(encodeErr))
			return
		}
		c.Send(encoded)
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}
