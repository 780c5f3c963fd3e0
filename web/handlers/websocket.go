package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"        //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	"nhooyr.io/websocket/wsjson" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/scrypster/activity-architect/internal/logging"
	"github.com/scrypster/activity-architect/internal/metrics"
	"github.com/scrypster/activity-architect/internal/session"
)

const writeTimeout = 10 * time.Second

// SessionHub serves /ws/session. Clients send target, tolerance and reset
// commands; after each one every client receives the new session snapshot.
type SessionHub struct {
	session *session.Session
	origins []string

	clients    map[clientInterface]bool
	broadcast  chan interface{}
	direct     chan directMessage
	register   chan clientInterface
	unregister chan clientInterface
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

// clientInterface allows for both real clients and mock clients.
type clientInterface interface {
	getSendChannel() chan []byte
	close()
}

type directMessage struct {
	client clientInterface
	data   []byte
}

// Client represents a WebSocket connection.
type Client struct {
	hub  *SessionHub
	conn *websocket.Conn //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	send chan []byte
}

func (c *Client) getSendChannel() chan []byte {
	return c.send
}

func (c *Client) close() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}
}

// NewSessionHub creates a hub over sess. origins are host patterns accepted
// for cross-origin upgrades.
func NewSessionHub(sess *session.Session, origins []string) *SessionHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionHub{
		session:    sess,
		origins:    origins,
		clients:    make(map[clientInterface]bool),
		broadcast:  make(chan interface{}, 256),
		direct:     make(chan directMessage, 64),
		register:   make(chan clientInterface),
		unregister: make(chan clientInterface),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run starts the hub's message processing loop. It returns after Stop.
func (h *SessionHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(count))
			logging.Debug().Int("clients", count).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			count := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(count))
			logging.Debug().Int("clients", count).Msg("websocket client disconnected")

		case msg := <-h.direct:
			h.mu.Lock()
			if h.clients[msg.client] {
				h.deliver(msg.client, msg.data)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				logging.Error().Err(err).Msg("failed to marshal websocket message")
				continue
			}
			// Full lock: slow clients are removed while iterating.
			h.mu.Lock()
			for client := range h.clients {
				h.deliver(client, data)
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
				client.close()
			}
			h.mu.Unlock()
			metrics.WebSocketClients.Set(0)
			logging.Debug().Msg("websocket hub stopped")
			return
		}
	}
}

// deliver queues data for client, dropping the client if its buffer is
// full. Must be called with h.mu held.
func (h *SessionHub) deliver(client clientInterface, data []byte) {
	select {
	case client.getSendChannel() <- data:
	default:
		h.drop(client)
	}
}

// drop removes client and closes its send channel. Must be called with
// h.mu held.
func (h *SessionHub) drop(client clientInterface) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.getSendChannel())
	}
}

// Stop shuts down the hub and disconnects every client.
func (h *SessionHub) Stop() {
	h.cancel()
}

// Broadcast sends a message to all connected clients.
func (h *SessionHub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Msg("websocket broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *SessionHub) Register(client clientInterface) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub.
func (h *SessionHub) Unregister(client clientInterface) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of connected clients.
func (h *SessionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendTo queues an event for a single client.
func (h *SessionHub) sendTo(client clientInterface, event SocketEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal websocket message")
		return
	}
	select {
	case h.direct <- directMessage{client: client, data: data}:
	case <-h.ctx.Done():
	}
}

// Apply executes one client command against the session. On success the new
// snapshot is broadcast to every client.
func (h *SessionHub) Apply(msg SocketMessage) error {
	if err := validateRequest(&msg); err != nil {
		return err
	}

	var err error
	switch msg.Type {
	case "target":
		err = h.session.SetTarget(msg.Key, msg.Value)
	case "tolerance":
		err = h.session.SetTolerance(msg.Tolerance)
	case "reset":
		h.session.ResetTargets()
	default:
		err = fmt.Errorf("unknown message type %q", msg.Type)
	}
	if err != nil {
		return err
	}

	snap := h.session.Snapshot()
	h.Broadcast(SocketEvent{Type: "session", Session: &snap})
	return nil
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		OriginPatterns: h.origins,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.Register(client)

	snap := h.session.Snapshot()
	h.sendTo(client, SocketEvent{Type: "session", Session: &snap})

	go client.writePump()
	go client.readPump()
}

// writePump sends messages to the WebSocket connection.
func (c *Client) writePump() {
	defer c.close()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, message) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		cancel()

		if err != nil {
			logging.Debug().Err(err).Msg("websocket write failed")
			c.hub.Unregister(c)
			return
		}
	}
}

// readPump applies client commands until the connection closes. Rejected
// commands are answered to the sender only.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	for {
		var msg SocketMessage
		err := wsjson.Read(c.hub.ctx, c.conn, &msg) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		if err != nil {
			// wsjson closes the connection itself on malformed JSON.
			return
		}

		if err := c.hub.Apply(msg); err != nil {
			c.hub.sendTo(c, SocketEvent{Type: "error", Error: err.Error()})
		}
	}
}

// MockClient is a mock client for testing.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) getSendChannel() chan []byte {
	return m.SendChan
}

func (m *MockClient) close() {}
