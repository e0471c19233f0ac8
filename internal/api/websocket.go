package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/gamepad-io/internal/infrastructure/config"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/logging"
	"github.com/nerrad567/gamepad-io/internal/relay"
)

// WebSocket message types.
//
// Inbound requests (version, controllers, join, leave, haptic, ping) are
// answered with a response, pong or error carrying the request id.
// Relay output arrives as event, with EventType naming the relay message.
const (
	WSTypeVersion     = "version"
	WSTypeControllers = "controllers"
	WSTypeJoin        = "join"
	WSTypeLeave       = "leave"
	WSTypeHaptic      = "haptic"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

const (
	defaultSendBuffer   = 256
	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second

	// detachTimeout bounds the engine call made while a socket closes.
	detachTimeout = 5 * time.Second
)

// WSMessage is the envelope for every socket message in both directions.
//
// Example event:
//
//	{"type":"event","event_type":"button_event","timestamp":"...",
//	 "payload":{"identifier":"...","button":0,"pressed":true,...}}
//
// Payload is always present so an empty snapshot encodes as [].
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload"`
}

// wsRequest is an inbound envelope with the payload left undecoded.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// WSGroupPayload is the payload for join and leave.
type WSGroupPayload struct {
	Identifier string `json:"identifier"`
}

// WSHapticPayload is the payload for haptic.
type WSHapticPayload struct {
	Identifier string          `json:"identifier"`
	Type       string          `json:"type"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Hub tracks open sockets so shutdown can close them.
//
// Routing does not go through the hub: each WSClient is attached to the
// relay engine as its own subscriber. The hub only owns lifecycle.
//
// Thread Safety: all methods are safe for concurrent use.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	ctx     context.Context
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient is one socket. It is the relay subscriber for that connection.
//
// readPump owns the read side and detaches from the engine when the socket
// fails; writePump owns the write side. Send is called from the engine
// goroutine and must never block.
type WSClient struct {
	id     string
	hub    *Hub
	engine Engine
	conn   *websocket.Conn
	send   chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
// Zero values in cfg fall back to the package defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		ctx:     context.Background(),
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subscriber", client.id, "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that removes the client from the map closes its send
// channel, so shutdown and a concurrent read error cannot double-close.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "subscriber", client.id, "clients", h.ClientCount())
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

func (h *Hub) sendBuffer() int {
	if h.cfg.SendBuffer > 0 {
		return h.cfg.SendBuffer
	}
	return defaultSendBuffer
}

// handleWebSocket upgrades the connection and attaches it to the engine,
// which sends the controllers snapshot as the first event.
//
// If the engine refuses the attach (stopped or shutting down) the socket
// is closed straight away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		id:     uuid.NewString(),
		hub:    s.hub,
		engine: s.engine,
		conn:   conn,
		send:   make(chan []byte, s.hub.sendBuffer()),
	}

	s.hub.Register(client)
	if err := s.engine.Attach(s.hub.ctx, client); err != nil {
		s.logger.Warn("websocket attach failed", "subscriber", client.id, "error", err)
		s.hub.Unregister(client)
		conn.Close()
		return
	}
	s.logger.Info("subscriber connected", "subscriber", client.id, "remote", r.RemoteAddr)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// ID implements relay.Subscriber.
func (c *WSClient) ID() string {
	return c.id
}

// Send implements relay.Subscriber. It encodes msg as an event and queues
// it without blocking; a full buffer drops the message.
func (c *WSClient) Send(msg relay.Message) bool {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: string(msg.Type),
		Timestamp: timestamp(),
		Payload:   msg.Payload(),
	})
	if err != nil {
		c.hub.logger.Error("failed to marshal relay message", "type", msg.Type, "error", err)
		return false
	}
	return c.trySend(data)
}

func pumpTimings(cfg config.WebSocketConfig) (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	pongWait = time.Duration(cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = defaultPongTimeout
	}
	return pingInterval, pongWait
}

// readPump reads requests until the socket fails, then detaches.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), detachTimeout)
		if err := c.engine.Detach(ctx, c); err != nil {
			c.hub.logger.Debug("websocket detach failed", "subscriber", c.id, "error", err)
		}
		cancel()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	pingInterval, pongWait := pumpTimings(cfg)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "subscriber", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "subscriber", c.id, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes queued messages and keepalive pings.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval, pongWait := pumpTimings(cfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches one inbound request.
func (c *WSClient) handleMessage(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	ctx := c.hub.ctx
	switch req.Type {
	case WSTypePing:
		c.sendResponse(req.ID, WSTypePong, "", nil)
	case WSTypeVersion:
		c.sendResponse(req.ID, WSTypeResponse, WSTypeVersion, map[string]string{"version": c.engine.Version()})
	case WSTypeControllers:
		snapshot, err := c.engine.Snapshot(ctx)
		if err != nil {
			c.sendError(req.ID, "controllers unavailable")
			return
		}
		c.sendResponse(req.ID, WSTypeResponse, WSTypeControllers, snapshot)
	case WSTypeJoin, WSTypeLeave:
		c.handleGroup(ctx, req)
	case WSTypeHaptic:
		c.handleHaptic(ctx, req)
	default:
		c.sendError(req.ID, "unknown message type: "+req.Type)
	}
}

func (c *WSClient) handleGroup(ctx context.Context, req wsRequest) {
	var p WSGroupPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil || p.Identifier == "" {
		c.sendError(req.ID, req.Type+" requires an identifier")
		return
	}

	var err error
	if req.Type == WSTypeJoin {
		err = c.engine.Join(ctx, c, p.Identifier)
	} else {
		err = c.engine.Leave(ctx, c, p.Identifier)
	}
	if err != nil {
		c.sendError(req.ID, req.Type+" failed")
		return
	}

	c.hub.logger.Debug("websocket group request", "subscriber", c.id, "type", req.Type, "identifier", p.Identifier)
	c.sendResponse(req.ID, WSTypeResponse, req.Type, p)
}

func (c *WSClient) handleHaptic(ctx context.Context, req wsRequest) {
	var p WSHapticPayload
	if err := json.Unmarshal(req.Payload, &p); err != nil || p.Identifier == "" || p.Type == "" {
		c.sendError(req.ID, "haptic requires an identifier and a type")
		return
	}
	if err := c.engine.Haptic(ctx, p.Identifier, p.Type, p.Params); err != nil {
		c.sendError(req.ID, "haptic failed")
		return
	}
	c.sendResponse(req.ID, WSTypeResponse, WSTypeHaptic, WSGroupPayload{Identifier: p.Identifier})
}

// trySend queues data and reports whether it was accepted. A closed channel
// (client gone mid-broadcast) and a full buffer (slow client) both drop.
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

func (c *WSClient) sendResponse(id, msgType, eventType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		EventType: eventType,
		Timestamp: timestamp(),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, "", map[string]string{"message": message})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
