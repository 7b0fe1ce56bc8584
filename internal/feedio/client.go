// Package feedio is the websocket gateway that streams eventbus
// StrategyEvents out of process: an external dashboard or replay recorder
// connects, optionally filters by event kind, and receives each event as
// JSON. It is adapted from the teacher's internal/session package, with
// ITCH's binary/JSON dual-format fan-out collapsed to plain JSON (an
// external event stream has no locate-code directory to replay) and
// ticker-subscription replaced by event-kind subscription.
package feedio

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/ndrandal/fund-forge-go/internal/eventbus"
)

// Client is one connected websocket subscriber.
type Client struct {
	ID   uint64
	Conn *websocket.Conn

	mu        sync.RWMutex
	kinds     map[eventbus.Kind]bool
	allKinds  bool

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	Dropped uint64
}

var clientIDCounter uint64

// NewClient wraps conn in a Client with a bufferSize-deep send queue.
func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:     atomic.AddUint64(&clientIDCounter, 1),
		Conn:   conn,
		kinds:  make(map[eventbus.Kind]bool),
		sendCh: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Subscribe adds kinds to the client's filter.
func (c *Client) Subscribe(kinds []eventbus.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range kinds {
		c.kinds[k] = true
	}
}

// SubscribeAll subscribes the client to every event kind.
func (c *Client) SubscribeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allKinds = true
}

// Unsubscribe removes kinds from the client's filter.
func (c *Client) Unsubscribe(kinds []eventbus.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range kinds {
		delete(c.kinds, k)
	}
}

// Wants reports whether the client's filter admits an event of kind k.
func (c *Client) Wants(k eventbus.Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.allKinds {
		return true
	}
	return c.kinds[k]
}

// Send enqueues data for delivery, dropping and counting it if the
// client's queue is full rather than blocking the broadcaster.
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		atomic.AddUint64(&c.Dropped, 1)
		return false
	}
}

// SendCh returns the outgoing queue for the write pump.
func (c *Client) SendCh() <-chan []byte {
	return c.sendCh
}

// Done returns a channel closed when the client disconnects.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close terminates the connection, idempotently.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
