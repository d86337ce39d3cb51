package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"patrolops/api/internal/middleware"
	"patrolops/api/internal/model"
	"patrolops/api/internal/service"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	// Heartbeat interval
	pingInterval = 30 * time.Second
	// Write timeout
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second
	// Sessions of idle clients are re-checked this often.
	sessionSweepInterval = 30 * time.Second
	sessionCheckTimeout  = 5 * time.Second
)

// WSMessage is the envelope of every frame exchanged with clients.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is one websocket connection bound to an authenticated session.
// User is the last resolved state of the session's user; only the hub's Run
// goroutine updates it after registration.
type Client struct {
	ID    string
	Token string
	User  *model.User
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *WSHub
}

// WSHub fans operative events out to the clients allowed to see them.
type WSHub struct {
	clients    map[*Client]bool
	events     chan model.OperativeEvent
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	policy     *service.VisibilityPolicy
	sessions   middleware.SessionResolver
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub. Every delivery re-validates the
// client's token and reloads its user through sessions, so expiry, logout,
// deletion and role or region changes apply to open sockets. A nil sessions
// trusts the user captured at connect time.
func NewWSHub(policy *service.VisibilityPolicy, sessions middleware.SessionResolver, logger *zap.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*Client]bool),
		events:     make(chan model.OperativeEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		policy:     policy,
		sessions:   sessions,
		logger:     logger,
	}
}

// Handle queues an event for delivery. It never blocks; events arriving while
// the queue is full are dropped.
func (h *WSHub) Handle(event model.OperativeEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("ws event queue full, dropping event",
			zap.String("kind", string(event.Kind)),
			zap.String("operative_id", event.ID))
	}
}

// Run starts the hub's event loop and returns after Stop.
func (h *WSHub) Run() {
	sweep := time.NewTicker(sessionSweepInterval)
	defer sweep.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client connected", zap.String("client_id", client.ID), zap.Int("clients", total))

		case client := <-h.unregister:
			h.remove(client)

		case event := <-h.events:
			h.deliver(event)

		case <-sweep.C:
			for _, client := range h.snapshot() {
				h.refresh(client)
			}

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *WSHub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.Send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info("ws client disconnected", zap.String("client_id", client.ID), zap.Int("clients", total))
	}
}

func (h *WSHub) deliver(event model.OperativeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("marshal ws event failed", zap.Error(err))
		return
	}
	data, err := json.Marshal(WSMessage{Type: "operative." + string(event.Kind), Data: payload})
	if err != nil {
		h.logger.Error("marshal ws envelope failed", zap.Error(err))
		return
	}

	target := event.Operative
	if target == nil {
		target = &model.Operative{ID: event.ID, Region: event.Region, CreatedBy: event.CreatedBy}
	}

	for _, client := range h.snapshot() {
		user, ok := h.refresh(client)
		if !ok || !h.policy.CanSee(user, target) {
			continue
		}
		select {
		case client.Send <- data:
		default:
			// 发送缓冲区已满
			h.remove(client)
		}
	}
}

func (h *WSHub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// refresh re-validates the client's session and returns its current user.
// Clients whose token expired or was revoked, or whose user no longer
// exists, are told so and disconnected. A store failure skips the client
// for this round and keeps it connected.
func (h *WSHub) refresh(client *Client) (*model.User, bool) {
	if h.sessions == nil {
		return client.User, client.User != nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionCheckTimeout)
	defer cancel()

	claims, err := h.sessions.ParseToken(ctx, client.Token)
	var user *model.User
	if err == nil {
		user, err = h.sessions.Resolve(ctx, claims)
	}
	switch {
	case err == nil:
		client.User = user
		return user, true
	case errors.Is(err, service.ErrInvalidCredential), errors.Is(err, service.ErrTokenRevoked):
		h.logger.Info("ws session ended", zap.String("client_id", client.ID), zap.Error(err))
		client.trySend([]byte(`{"type":"session.closed"}`))
		h.remove(client)
	default:
		h.logger.Warn("ws session check failed", zap.String("client_id", client.ID), zap.Error(err))
	}
	return nil, false
}

// Stop ends Run and closes every client's send queue.
func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// GetClientCount returns the number of connected clients
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ReadPump handles incoming messages from the client
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Debug("ws read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err == nil && msg.Type == "ping" {
			c.trySend([]byte(`{"type":"pong"}`))
		}
	}
}

// trySend queues data unless the hub already closed the client.
func (c *Client) trySend(data []byte) {
	c.Hub.mu.RLock()
	defer c.Hub.mu.RUnlock()
	if !c.Hub.clients[c] {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub    *WSHub
	logger *zap.Logger
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(hub *WSHub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// RegisterRoutes 注册路由
func (h *WSHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws/operatives", h.HandleOperatives)
	r.GET("/ws/stats", h.GetStats)
}

// HandleOperatives godoc
// @Summary 行动实时推送
// @Description Upgrade to a websocket streaming the operative events visible to the caller. The token may be passed as the token query parameter.
// @Tags ws
// @Security BearerAuth
// @Router /ws/operatives [get]
func (h *WSHandler) HandleOperatives(c *gin.Context) {
	user := middleware.CurrentUser(c)
	token := middleware.SessionToken(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:    uuid.NewString(),
		Token: token,
		User:  user,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   h.hub,
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	welcome, _ := json.Marshal(gin.H{
		"type":      "connected",
		"client_id": client.ID,
	})
	client.trySend(welcome)
}

// GetStats returns WebSocket hub statistics
func (h *WSHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": h.hub.GetClientCount(),
	})
}
