// Package websocket hosts one navigation session per connected browser tab.
//
// The Hub accepts websocket connections, creates a Session (page model plus
// navigation controller) for each, decodes client messages into intents and
// writes the page's render updates back. Sessions share the class registry,
// the loader and the preferences; everything else is per tab.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/docview/internal/analytics"
	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/logging"
	"github.com/conneroisu/docview/internal/navigation"
	"github.com/conneroisu/docview/internal/registry"
	"github.com/conneroisu/docview/internal/settings"
	"github.com/conneroisu/docview/internal/view"
)

// OriginValidator interface for WebSocket origin validation
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}

// OriginValidatorFunc adapts a function to OriginValidator
type OriginValidatorFunc func(origin string) bool

// IsAllowedOrigin calls f(origin)
func (f OriginValidatorFunc) IsAllowedOrigin(origin string) bool {
	return f(origin)
}

// Config wires a Hub. Catalog and Loader are required.
type Config struct {
	Catalog     *registry.ClassRegistry
	Loader      navigation.ClassLoader
	Preferences *settings.Preferences
	Tracker     *analytics.Tracker
	Page        view.Options
	// OriginValidator rejects cross-origin upgrades; nil allows every origin
	OriginValidator      OriginValidator
	MaxConnectionsPerIP  int
	MaxMessagesPerMinute int
	// ReadTimeout closes idle connections
	ReadTimeout time.Duration
	Logger      logging.Logger
}

// Hub manages the connected tabs.
//
// Invariants:
//   - clients is only accessed with clientsMutex held
//   - every registered client has a running session
//   - ctx is cancelled exactly once, by Shutdown
type Hub struct {
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *websocket.Conn

	catalog     *registry.ClassRegistry
	loader      navigation.ClassLoader
	prefs       *settings.Preferences
	tracker     *analytics.Tracker
	page        view.Options
	origins     OriginValidator
	ips         *ipTracker
	msgLimit    int
	readTimeout time.Duration
	logger      logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	hubDone      chan struct{}
}

// NewHub creates a hub and starts its background loops: the connection hub
// and the registry watcher that pushes class list reloads to every session.
func NewHub(cfg Config) (*Hub, error) {
	if cfg.Catalog == nil || cfg.Loader == nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError,
			"websocket hub needs a class registry and a loader", nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDiscardLogger()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:     make(map[*websocket.Conn]*Client),
		broadcast:   make(chan []byte, 256),
		register:    make(chan *Client, 32),
		unregister:  make(chan *websocket.Conn, 32),
		catalog:     cfg.Catalog,
		loader:      cfg.Loader,
		prefs:       cfg.Preferences,
		tracker:     cfg.Tracker,
		page:        cfg.Page,
		origins:     cfg.OriginValidator,
		ips:         newIPTracker(cfg.MaxConnectionsPerIP),
		msgLimit:    cfg.MaxMessagesPerMinute,
		readTimeout: cfg.ReadTimeout,
		logger:      cfg.Logger.WithComponent("websocket"),
		ctx:         ctx,
		cancel:      cancel,
		hubDone:     make(chan struct{}),
	}

	watch := cfg.Catalog.Watch()
	go h.runHub()
	go h.watchRegistry(watch)

	return h, nil
}

// HandleWebSocket upgrades the request and runs a session until the tab
// disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if origin := r.Header.Get("Origin"); origin != "" && h.origins != nil && !h.origins.IsAllowedOrigin(origin) {
		h.logger.Warn(r.Context(), nil, "WebSocket connection rejected: origin not allowed", "origin", origin)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	ip := clientIP(r)
	if !h.ips.acquire(ip) {
		h.logger.Warn(r.Context(), nil, "WebSocket connection rejected: too many connections", "ip", ip)
		http.Error(w, "Too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origins are checked above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		h.ips.release(ip)
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "ip", ip)
		return
	}

	client := &Client{
		conn:         conn,
		send:         make(chan []byte, 256),
		closed:       make(chan struct{}),
		ip:           ip,
		lastActivity: time.Now(),
		rateLimiter:  NewWindowLimiter(h.msgLimit, time.Minute),
	}

	session, err := h.newSession(client)
	if err != nil {
		h.ips.release(ip)
		h.logger.Error(r.Context(), err, "Session setup failed")
		_ = conn.Close(websocket.StatusInternalError, "Internal server error")
		return
	}
	client.session = session

	select {
	case h.register <- client:
	case <-h.ctx.Done():
		close(client.closed)
		session.close(time.Second)
		h.ips.release(ip)
		_ = conn.Close(websocket.StatusServiceRestart, "Server shutting down")
		return
	}

	h.sendTo(client, view.UpdateMessage{Type: "session", Target: session.ID, Timestamp: time.Now()})
	h.logger.Info(r.Context(), "Session started", "session", session.ID, "ip", ip)

	// The handler owns the connection until the read pump returns.
	go h.writeToClient(client)
	h.readFromClient(client)
	h.unregisterAndWait(client.conn)
}

// runHub manages client registration and broadcasting
func (h *Hub) runHub() {
	defer close(h.hubDone)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case conn := <-h.unregister:
			h.unregisterClient(conn)

		case message := <-h.broadcast:
			h.broadcastToClients(message)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMutex.Lock()
	h.clients[client.conn] = client
	count := len(h.clients)
	h.clientsMutex.Unlock()

	h.logger.Debug(h.ctx, "WebSocket client connected", "clients", count)
}

func (h *Hub) unregisterClient(conn *websocket.Conn) {
	h.clientsMutex.Lock()
	client, exists := h.clients[conn]
	if exists {
		delete(h.clients, conn)
	}
	count := len(h.clients)
	h.clientsMutex.Unlock()

	if !exists {
		return
	}
	h.closeClient(client, websocket.StatusNormalClosure, "")
	h.logger.Debug(h.ctx, "WebSocket client disconnected", "clients", count)
}

// unregisterAndWait hands conn to the hub loop, or cleans up directly once
// the hub has stopped.
func (h *Hub) unregisterAndWait(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.hubDone:
		h.unregisterClient(conn)
	}
}

// closeClient stops the session and releases the connection. It must only
// be called for a client already removed from the clients map.
func (h *Hub) closeClient(client *Client, status websocket.StatusCode, reason string) {
	close(client.closed)
	client.session.close(5 * time.Second)
	h.ips.release(client.ip)
	_ = client.conn.Close(status, reason)
	h.logger.Info(h.ctx, "Session ended", "session", client.session.ID)
}

func (h *Hub) broadcastToClients(message []byte) {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	for _, client := range h.clients {
		select {
		case <-client.closed:
		case client.send <- message:
		default:
			h.logger.Warn(h.ctx, nil, "Client send buffer full, dropping broadcast", "session", client.session.ID)
		}
	}
}

// sendTo queues msg for one client without blocking. Messages to a client
// whose buffer is full, or that has gone, are dropped.
func (h *Hub) sendTo(client *Client, msg view.UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to marshal update")
		return
	}

	select {
	case <-client.closed:
	case client.send <- data:
	default:
		h.logger.Warn(h.ctx, nil, "Client send buffer full, dropping update", "type", msg.Type)
	}
}

func (h *Hub) readFromClient(client *Client) {
	for {
		ctx, cancel := context.WithTimeout(h.ctx, h.readTimeout)
		_, data, err := client.conn.Read(ctx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway {
				h.logger.Debug(h.ctx, "WebSocket read ended", "error", err.Error())
			}
			return
		}

		client.lastActivity = time.Now()
		if !client.rateLimiter.Allow() {
			h.logger.Warn(h.ctx, nil, "WebSocket message rate limit exceeded", "session", client.session.ID)
			return
		}

		h.processClientMessage(client, data)
	}
}

func (h *Hub) writeToClient(client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case message := <-client.send:
			ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(h.ctx, "WebSocket write failed", "error", err.Error())
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-client.closed:
			return
		case <-h.ctx.Done():
			return
		}
	}
}

// processClientMessage decodes a message and hands it to the session.
func (h *Hub) processClientMessage(client *Client, data []byte) {
	msg, err := DecodeMessage(data)
	if err == nil && msg.Type == MessageSync {
		h.sendSnapshot(client)
		return
	}

	var in navigation.Intent
	if err == nil {
		in, err = msg.Intent()
	}
	if err != nil {
		h.logger.Warn(h.ctx, err, "Client message rejected", "session", client.session.ID)
		h.sendTo(client, view.UpdateMessage{Type: "error", Content: err.Error(), Timestamp: time.Now()})
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	if err := client.session.ctrl.Send(ctx, in); err != nil {
		h.logger.Warn(h.ctx, err, "Intent not delivered", "session", client.session.ID)
	}
}

func (h *Hub) sendSnapshot(client *Client) {
	snap, err := client.session.page.Snapshot()
	if err != nil {
		h.logger.Warn(h.ctx, err, "Page snapshot incomplete", "session", client.session.ID)
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return
	}
	h.sendTo(client, view.UpdateMessage{Type: "snapshot", Content: string(body), Timestamp: time.Now()})
}

// watchRegistry pushes the new class list to every session after the index
// is reloaded, and tells every tab about it.
func (h *Hub) watchRegistry(events <-chan registry.Event) {
	defer h.catalog.UnWatch(events)
	for {
		select {
		case <-h.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.logger.Info(h.ctx, "Class index changed", "classes", event.Count)
			h.Dispatch(navigation.ReloadClasses{Classes: h.catalog.Classes()})
			h.BroadcastMessage(view.UpdateMessage{
				Type:      view.UpdateNotice,
				Content:   fmt.Sprintf("Class index reloaded: %d classes", event.Count),
				Timestamp: time.Now(),
			})
		}
	}
}

// Dispatch sends an intent to every session. Sessions that cannot accept
// it within a second miss it.
func (h *Hub) Dispatch(in navigation.Intent) {
	for _, s := range h.Sessions() {
		ctx, cancel := context.WithTimeout(h.ctx, time.Second)
		if err := s.ctrl.Send(ctx, in); err != nil {
			h.logger.Warn(h.ctx, err, "Intent not delivered", "session", s.ID)
		}
		cancel()
	}
}

// BroadcastMessage sends a message to all connected tabs
func (h *Hub) BroadcastMessage(msg view.UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "Failed to marshal broadcast message")
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, nil, "Broadcast channel full, dropping message")
	}
}

// Sessions returns the live sessions
func (h *Hub) Sessions() []*Session {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	sessions := make([]*Session, 0, len(h.clients))
	for _, c := range h.clients {
		sessions = append(sessions, c.session)
	}
	return sessions
}

// GetConnectedClients returns the number of connected tabs
func (h *Hub) GetConnectedClients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Shutdown closes every session and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		h.cancel()

		select {
		case <-h.hubDone:
		case <-ctx.Done():
		}

		h.clientsMutex.Lock()
		clients := make([]*Client, 0, len(h.clients))
		for conn, client := range h.clients {
			clients = append(clients, client)
			delete(h.clients, conn)
		}
		h.clientsMutex.Unlock()

		for _, client := range clients {
			h.closeClient(client, websocket.StatusGoingAway, "Server shutdown")
		}
		h.logger.Info(ctx, "WebSocket hub shut down", "sessions", len(clients))
	})
	return ctx.Err()
}

// IsShutdown reports whether Shutdown was called
func (h *Hub) IsShutdown() bool {
	return h.ctx.Err() != nil
}
