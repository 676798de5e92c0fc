// Package ws streams playback frames to browsers over WebSocket and accepts
// playback intents back from them.
package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/meteorite-playback/internal/observability"
	"github.com/couchcryptid/meteorite-playback/internal/playback"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message types sent to clients.
const (
	MessageHello = "hello"
	MessageFrame = "frame"
	MessageError = "error"
)

// Controller is the playback surface the hub needs.
type Controller interface {
	Dispatch(in playback.Intent) error
	WithLastFrame(fn func(frame playback.Frame, ok bool))
}

// Message is the envelope for everything the hub sends.
type Message struct {
	Type     string            `json:"type"`
	ClientID string            `json:"client_id,omitempty"`
	Frame    *playback.Payload `json:"frame,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans frames out to connected clients. It implements playback.Renderer
// and http.Handler. Render never blocks: a client whose buffer is full is
// disconnected and expected to reconnect for a fresh full frame.
type Hub struct {
	controller Controller
	logger     *slog.Logger
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates a hub. The controller may be nil until SetController is
// called; intents received before that are rejected.
func NewHub(controller Controller, logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		controller: controller,
		logger:     logger,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// SetController attaches the controller. The hub is usually created before
// the controller because the controller renders into it.
func (h *Hub) SetController(c Controller) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.controller = c
}

// Render implements playback.Renderer.
func (h *Hub) Render(frame playback.Frame) error {
	payload := playback.NewPayload(frame)
	data, err := json.Marshal(Message{Type: MessageFrame, Frame: &payload})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client too slow, disconnecting", "client_id", id)
			h.removeLocked(id)
		}
	}
	return nil
}

// ServeHTTP upgrades the connection and serves the client until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{id: ulid.Make().String(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.clients {
		h.removeLocked(id)
	}
}

func (h *Hub) register(c *client) {
	h.enqueue(c, Message{Type: MessageHello, ClientID: c.id})

	h.mu.Lock()
	controller := h.controller
	h.mu.Unlock()

	add := func(frame playback.Frame, ok bool) {
		h.mu.Lock()
		defer h.mu.Unlock()
		// Late joiners get the last frame in full so they can draw from scratch.
		if ok {
			payload := playback.NewFullPayload(frame)
			h.enqueue(c, Message{Type: MessageFrame, Frame: &payload})
		}
		h.clients[c.id] = c
		h.metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
	// The controller lock is taken before the hub lock, the same order as a
	// frame push, so no frame slips between the greeting and registration.
	if controller != nil {
		controller.WithLastFrame(add)
	} else {
		add(playback.Frame{}, false)
	}
	h.logger.Info("websocket client connected", "client_id", c.id)
}

func (h *Hub) enqueue(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode websocket message", "type", msg.Type, "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// reply enqueues msg for a registered client. The send channel is closed on
// removal, so membership is checked under the lock.
func (h *Hub) reply(c *client, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] != c {
		return
	}
	h.enqueue(c, msg)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(id)
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	c.close()
	h.metrics.WebSocketClients.Set(float64(len(h.clients)))
	h.logger.Info("websocket client disconnected", "client_id", id)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c.id)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "client_id", c.id, "error", err)
			}
			return
		}
		var in playback.Intent
		if err := json.Unmarshal(data, &in); err != nil {
			h.logger.Debug("malformed intent", "client_id", c.id, "error", err)
			h.reply(c, Message{Type: MessageError, Error: "malformed intent"})
			continue
		}
		h.dispatch(c, in)
	}
}

func (h *Hub) dispatch(c *client, in playback.Intent) {
	h.mu.Lock()
	controller := h.controller
	h.mu.Unlock()

	if controller == nil {
		h.reply(c, Message{Type: MessageError, Error: "playback is not ready"})
		return
	}
	if err := controller.Dispatch(in); err != nil {
		h.logger.Debug("intent rejected", "client_id", c.id, "type", in.Type, "error", err)
		h.reply(c, Message{Type: MessageError, Error: err.Error()})
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(c.id)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c.id)
				return
			}
		}
	}
}
