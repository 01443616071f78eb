// README: Websocket stream pushing one View per change to every client.
package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"mototaxi/internal/service"
)

const sendBuffer = 8

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
type safeConn struct {
	mu   sync.Mutex
	ws   *websocket.Conn
	send chan service.View
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// StreamHandler fans session views out to websocket clients. Views for a
// client that falls behind are dropped rather than blocking the session.
type StreamHandler struct {
	session RiderSession
	log     logrus.FieldLogger

	mu    sync.RWMutex
	conns map[*safeConn]struct{}
}

func NewStreamHandler(session RiderSession, log logrus.FieldLogger) *StreamHandler {
	h := &StreamHandler{session: session, log: log, conns: make(map[*safeConn]struct{})}
	session.Subscribe(h.Broadcast)
	return h
}

func (h *StreamHandler) Broadcast(v service.View) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		select {
		case c.send <- v:
		default:
			h.log.Debug("ws client behind, dropping view")
		}
	}
}

func (h *StreamHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Serve upgrades the connection, sends the current view, and then streams
// updates until the client disconnects.
func (h *StreamHandler) Serve(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	conn := &safeConn{ws: ws, send: make(chan service.View, sendBuffer)}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.log.WithField("remote", c.ClientIP()).Info("ws client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := conn.writeJSON(h.session.View()); err != nil {
			return
		}
		for v := range conn.send {
			if err := conn.writeJSON(v); err != nil {
				h.log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	// block until the client disconnects
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns, conn)
	close(conn.send)
	h.mu.Unlock()
	<-done
	_ = ws.Close()
	h.log.WithField("remote", c.ClientIP()).Info("ws client disconnected")
}
