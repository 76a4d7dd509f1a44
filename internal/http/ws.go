package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tobjohnbx/demo-mobile-charging/internal/events"
)

// EventHub pushes session lifecycle events to connected WebSocket
// observers. Observers are one-way: incoming frames are drained only to
// detect disconnects.
type EventHub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*hubConn]struct{}
}

type hubConn struct {
	ws   *websocket.Conn
	send chan []byte
}

// NewEventHub builds the hub.
func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[*hubConn]struct{}),
	}
}

// Register subscribes the hub to both session lifecycle events.
func (h *EventHub) Register(em *events.Emitter) {
	em.On(events.ChargingStarted, h.broadcast)
	em.On(events.ChargingFinished, h.broadcast)
}

// broadcast serializes the event once and enqueues it on every observer.
// Slow observers lose frames rather than block the emitting session.
func (h *EventHub) broadcast(_ context.Context, ev events.SessionEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode session event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		select {
		case conn.send <- payload:
		default:
			h.logger.Warn("dropping event, observer buffer full")
		}
	}
}

// ServeHTTP upgrades the request and attaches the client to the hub.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := &hubConn{
		ws:   ws,
		send: make(chan []byte, 16),
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("event observer connected", zap.String("remote", ws.RemoteAddr().String()))

	go h.writePump(conn)
	h.readPump(conn)
}

func (h *EventHub) readPump(conn *hubConn) {
	defer h.drop(conn)
	conn.ws.SetReadLimit(512)
	conn.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) writePump(conn *hubConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-conn.send:
			if !ok {
				_ = h.write(conn, websocket.CloseMessage, []byte{})
				return
			}
			if err := h.write(conn, websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

func (h *EventHub) write(conn *hubConn, messageType int, data []byte) error {
	conn.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.ws.WriteMessage(messageType, data)
}

func (h *EventHub) drop(conn *hubConn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		close(conn.send)
	}
	h.mu.Unlock()
	_ = conn.ws.Close()
}
