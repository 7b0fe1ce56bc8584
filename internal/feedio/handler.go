package feedio

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ndrandal/fund-forge-go/internal/eventbus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// controlMessage is a client -> server subscription command.
type controlMessage struct {
	Action string   `json:"action"` // "subscribe" | "unsubscribe"
	Kinds  []string `json:"kinds,omitempty"`
}

// Handler returns the HTTP handler that upgrades a request to a websocket
// and registers it with mgr.
func Handler(mgr *Manager, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("feedio: websocket upgrade failed", zap.Error(err))
			return
		}
		c := mgr.Register(conn)
		go writePump(c)
		go readPump(c, mgr, log)
	}
}

func readPump(c *Client, mgr *Manager, log *zap.Logger) {
	defer mgr.Unregister(c)

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("feedio: client read error", zap.Uint64("id", c.ID), zap.Error(err))
			}
			return
		}
		var ctrl controlMessage
		if err := json.Unmarshal(message, &ctrl); err != nil {
			log.Warn("feedio: invalid control message", zap.Uint64("id", c.ID), zap.Error(err))
			continue
		}
		handleControl(c, &ctrl, log)
	}
}

func handleControl(c *Client, ctrl *controlMessage, log *zap.Logger) {
	switch ctrl.Action {
	case "subscribe":
		if len(ctrl.Kinds) == 0 {
			c.SubscribeAll()
			return
		}
		c.Subscribe(parseKinds(ctrl.Kinds, log))
	case "unsubscribe":
		c.Unsubscribe(parseKinds(ctrl.Kinds, log))
	default:
		log.Warn("feedio: unknown control action", zap.Uint64("id", c.ID), zap.String("action", ctrl.Action))
	}
}

func parseKinds(names []string, log *zap.Logger) []eventbus.Kind {
	var out []eventbus.Kind
	for _, n := range names {
		k, ok := ParseKind(n)
		if !ok {
			log.Warn("feedio: unknown event kind in control message", zap.String("kind", n))
			continue
		}
		out = append(out, k)
	}
	return out
}

func writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case data, ok := <-c.SendCh():
			if !ok {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done():
			return
		}
	}
}
