package agent

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"watchtrail/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // content scripts connect from arbitrary page origins
	},
}

// contextConn is one live viewing context: a content script holding a
// player page open. It implements trail.SeekSender.
type contextConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

// contextMessage is the frame format in both directions.
type contextMessage struct {
	Type string  `json:"type"`
	URL  string  `json:"url,omitempty"`
	Time float64 `json:"time,omitempty"`
}

// SendSeek pushes a SEEK_TO frame to the page.
func (c *contextConn) SendSeek(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(contextMessage{Type: "SEEK_TO", Time: seconds})
}

func (c *contextConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// ContextSocketHandler upgrades a content script connection and keeps
// its page URL registered for resume routing. The initial URL comes
// from the `url` query parameter; NAVIGATE frames track in-page
// navigation afterwards.
func (a *Agent) ContextSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Context upgrade failed", logger.ErrorField(err))
		return
	}

	cc := &contextConn{conn: conn}
	id := a.registry.Register(r.URL.Query().Get("url"), cc)
	logger.Debug("Viewing context connected", logger.Int64("contextId", id))

	defer func() {
		a.registry.Unregister(id)
		conn.Close()
		logger.Debug("Viewing context disconnected", logger.Int64("contextId", id))
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := cc.ping(); err != nil {
					return
				}
			}
		}
	}()
	defer close(done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Context read error", logger.ErrorField(err))
			}
			return
		}

		var msg contextMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "NAVIGATE" && msg.URL != "" {
			a.registry.UpdateURL(id, msg.URL)
		}
	}
}
