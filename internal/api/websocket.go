package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/playback-core/internal/auth"
	"github.com/nerrad567/playback-core/internal/driver"
	"github.com/nerrad567/playback-core/internal/infrastructure/config"
	"github.com/nerrad567/playback-core/internal/infrastructure/logging"
	"github.com/nerrad567/playback-core/internal/lifecycle"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	wsSendBufferSize = 256
)

// Broadcast channels a client can subscribe to.
const (
	// ChannelLifecycleEvent carries every lifecycle command, rejected or not.
	ChannelLifecycleEvent = "lifecycle.event"

	// ChannelDriverState carries the per-category driver status after each
	// accepted command.
	ChannelDriverState = "driver.state"
)

var knownChannels = map[string]bool{
	ChannelLifecycleEvent: true,
	ChannelDriverState:    true,
}

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// inboundMessage is WSMessage as decoded from a client; the payload is
// decoded per message type.
type inboundMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe messages.
//
// Categories narrows driver.state to the listed categories; empty means
// every category. It is only read on subscribe.
type WSSubscribePayload struct {
	Channels   []string   `json:"channels"`
	Categories driver.Set `json:"categories,omitempty"`
}

// Hub fans lifecycle events out to WebSocket clients.
//
// It implements lifecycle.Observer. Broadcasting never blocks: a client
// whose buffer is full misses the message and the drop is counted.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
	dropped atomic.Uint64

	// last driver snapshot, replayed to new driver.state subscribers
	stateMu   sync.RWMutex
	lastState []lifecycle.DriverStatus
}

// WSClient is one connected WebSocket client.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}
	categories    driver.Set
	mu            sync.RWMutex

	username string
	role     auth.Role
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware and the ticket.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// NewHub creates a hub. Call Run to tie its lifetime to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "username", client.username, "clients", n)
}

// Unregister removes a client. Only the call that removes it from the map
// closes its send channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
		h.logger.Debug("websocket client disconnected", "username", client.username, "clients", n)
	}
}

// Broadcast sends payload to every client subscribed to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := encodeEvent(channel, payload)
	if err != nil {
		h.logger.Error("encoding websocket event failed", "channel", channel, "error", err)
		return
	}

	recipients := 0
	for _, client := range h.snapshot() {
		if !client.isSubscribed(channel) {
			continue
		}
		recipients++
		h.deliver(client, data)
	}
	if recipients > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", recipients)
	}
}

// broadcastDriverState sends the driver snapshot, narrowed to each client's
// category filter.
func (h *Hub) broadcastDriverState(drivers []lifecycle.DriverStatus) {
	h.stateMu.Lock()
	h.lastState = drivers
	h.stateMu.Unlock()

	encoded := make(map[driver.Set][]byte)
	for _, client := range h.snapshot() {
		if !client.isSubscribed(ChannelDriverState) {
			continue
		}
		filter := client.categoryFilter()
		data, ok := encoded[filter]
		if !ok {
			var err error
			data, err = encodeEvent(ChannelDriverState, filterDrivers(drivers, filter))
			if err != nil {
				h.logger.Error("encoding driver state failed", "error", err)
				return
			}
			encoded[filter] = data
		}
		h.deliver(client, data)
	}
}

// OnLifecycleEvent implements lifecycle.Observer. It runs on the loop
// goroutine.
func (h *Hub) OnLifecycleEvent(ev lifecycle.Event) {
	h.Broadcast(ChannelLifecycleEvent, ev)
	if ev.Rejected() {
		return
	}
	h.broadcastDriverState(ev.Status.Drivers)
}

// Dropped returns how many messages were skipped because a client's
// buffer was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*WSClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) deliver(client *WSClient, data []byte) {
	if !client.trySend(data) {
		h.dropped.Add(1)
	}
}

func (h *Hub) lastDriverState() ([]lifecycle.DriverStatus, bool) {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.lastState, h.lastState != nil
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close() //nolint:errcheck // shutting down
		}
		delete(h.clients, client)
	}
}

func encodeEvent(channel string, payload any) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
}

// filterDrivers keeps the categories in set; an empty set keeps all.
func filterDrivers(drivers []lifecycle.DriverStatus, set driver.Set) []lifecycle.DriverStatus {
	if set.Empty() {
		return drivers
	}
	out := make([]lifecycle.DriverStatus, 0, len(drivers))
	for _, d := range drivers {
		if set.Has(d.Category) {
			out = append(out, d)
		}
	}
	return out
}

// handleWebSocket upgrades an authenticated connection. Browsers cannot set
// headers on the upgrade request, so auth is a single-use ticket from
// POST /auth/ws-ticket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket, time.Now())
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
		username:      entry.username,
		role:          entry.role,
	}
	s.hub.Register(client)

	timing := newConnTiming(s.wsCfg)
	go client.writePump(timing)
	go client.readPump(timing)
}

// connTiming holds the keepalive settings of one connection.
type connTiming struct {
	readLimit    int64
	pingInterval time.Duration
	pongWait     time.Duration
}

func newConnTiming(cfg config.WebSocketConfig) connTiming {
	return connTiming{
		readLimit:    int64(cfg.MaxMessageSize),
		pingInterval: time.Duration(cfg.PingInterval) * time.Second,
		pongWait:     time.Duration(cfg.PongTimeout) * time.Second,
	}
}

// readDeadline is how long a connection may stay silent.
func (t connTiming) readDeadline() time.Time {
	return time.Now().Add(t.pingInterval + t.pongWait)
}

func (t connTiming) writeDeadline() time.Time {
	return time.Now().Add(t.pongWait)
}

// readPump decodes client frames until the connection fails.
func (c *WSClient) readPump(t connTiming) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // already failing
	}()

	c.conn.SetReadLimit(t.readLimit)
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetReadDeadline(t.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(t.readDeadline())
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "username", c.username, "error", err)
			}
			return
		}
		// Application frames count as liveness too; some browsers never
		// answer protocol pings while a tab is in the background.
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(t.readDeadline())
		c.handleMessage(frame)
	}
}

// writePump drains the send buffer and pings on an interval.
func (c *WSClient) writePump(t connTiming) {
	ping := time.NewTicker(t.pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close() //nolint:errcheck // already stopping
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // a failed deadline surfaces as a write error
		c.conn.SetWriteDeadline(t.writeDeadline())
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, open := <-c.send:
			if !open {
				write(websocket.CloseMessage, nil) //nolint:errcheck // best-effort goodbye
				return
			}
			if err := write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(frame []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.updateSubscriptions(msg, true)
	case WSTypeUnsubscribe:
		c.updateSubscriptions(msg, false)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// updateSubscriptions adds or removes channels. Unknown channels reject the
// whole message. A new driver.state subscriber is sent the last snapshot.
func (c *WSClient) updateSubscriptions(msg inboundMessage, subscribe bool) {
	var sub WSSubscribePayload
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		c.sendError(msg.ID, fmt.Sprintf("invalid %s payload", msg.Type))
		return
	}
	for _, ch := range sub.Channels {
		if !knownChannels[ch] {
			c.sendError(msg.ID, "unknown channel: "+ch)
			return
		}
	}

	c.mu.Lock()
	wantsState := false
	for _, ch := range sub.Channels {
		if !subscribe {
			delete(c.subscriptions, ch)
			continue
		}
		c.subscriptions[ch] = struct{}{}
		wantsState = wantsState || ch == ChannelDriverState
	}
	if subscribe {
		c.categories = sub.Categories
	}
	filter := c.categories
	c.mu.Unlock()

	if !subscribe {
		c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
		return
	}

	c.hub.logger.Debug("websocket client subscribed",
		"username", c.username,
		"channels", sub.Channels,
		"categories", filter.Labels(),
	)
	c.sendResponse(msg.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})

	if !wantsState {
		return
	}
	if drivers, ok := c.hub.lastDriverState(); ok {
		if data, err := encodeEvent(ChannelDriverState, filterDrivers(drivers, filter)); err == nil {
			c.hub.deliver(c, data)
		}
	}
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the client was unregistered mid-broadcast.
func (c *WSClient) trySend(data []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

func (c *WSClient) categoryFilter() driver.Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.categories
}

func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
