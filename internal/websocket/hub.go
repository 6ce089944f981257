// Package websocket serves the realtime channel: clients subscribe to a
// table, optionally narrowed by a column=eq.value filter, and receive every
// committed write that matches.
// Uses github.com/coder/websocket - the context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/changefeed"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/metrics"
)

// Feed is the source of row changes
type Feed interface {
	Subscribe(table string, filter changefeed.Filter, fn func(changefeed.Change)) (cancel func())
}

// TableRules decides which tables exist and which columns may filter them.
// An empty column asks about the table alone.
type TableRules interface {
	Filterable(table, column string) (tableOK, columnOK bool)
}

// Hub maintains the set of active clients
type Hub struct {
	feed  Feed
	rules TableRules

	// Registered clients by user ID for targeted messaging
	clients map[string]map[*Client]struct{}

	// All clients for broadcasting
	allClients map[*Client]struct{}

	mu sync.RWMutex

	metrics *Metrics

	// Rate limiter config
	rateLimitConfig RateLimitConfig

	shuttingDown atomic.Bool
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections    atomic.Int64
	ActiveConnections   atomic.Int64
	ActiveSubscriptions atomic.Int64
	MessagesReceived    atomic.Int64
	MessagesSent        atomic.Int64
	Errors              atomic.Int64
	ConnectionsDropped  atomic.Int64
}

// RateLimitConfig defines rate limiting parameters for inbound frames
type RateLimitConfig struct {
	// MaxMessagesPerSecond per client
	MaxMessagesPerSecond int
	// BurstSize allows short bursts above the rate
	BurstSize int
	// MaxSubscriptions per connection
	MaxSubscriptions int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
		MaxSubscriptions:     32,
	}
}

// NewHub creates a hub that subscribes clients to feed, within rules
func NewHub(feed Feed, rules TableRules) *Hub {
	return &Hub{
		feed:            feed,
		rules:           rules,
		clients:         make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		metrics:         &Metrics{},
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.allClients[client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	metrics.Get().RealtimeConnections.Inc()

	logger.Log.Info("Realtime client connected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()))
}

// Unregister removes a client from the hub. Unknown clients are ignored.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)
	if clients, ok := h.clients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.UserID)
		}
	}

	h.metrics.ActiveConnections.Add(-1)
	metrics.Get().RealtimeConnections.Dec()

	logger.Log.Info("Realtime client disconnected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()))
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.allClients {
		_ = client.Send(message)
	}
}

// SendToUser sends a message to every connection of userID
func (h *Hub) SendToUser(userID string, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		_ = client.Send(message)
	}
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetOnlineUsers returns a list of all online user IDs
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:    h.metrics.TotalConnections.Load(),
		ActiveConnections:   h.metrics.ActiveConnections.Load(),
		ActiveSubscriptions: h.metrics.ActiveSubscriptions.Load(),
		MessagesReceived:    h.metrics.MessagesReceived.Load(),
		MessagesSent:        h.metrics.MessagesSent.Load(),
		Errors:              h.metrics.Errors.Load(),
		ConnectionsDropped:  h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections    int64 `json:"total_connections"`
	ActiveConnections   int64 `json:"active_connections"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	MessagesReceived    int64 `json:"messages_received"`
	MessagesSent        int64 `json:"messages_sent"`
	Errors              int64 `json:"errors"`
	ConnectionsDropped  int64 `json:"connections_dropped"`
}

// String implements Stringer for MetricsSnapshot
func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d subscriptions=%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections, m.ActiveSubscriptions,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown tells every client the server is going away and closes them,
// waiting until they have unregistered or ctx expires
func (h *Hub) Shutdown(ctx context.Context) error {
	h.shuttingDown.Store(true)
	logger.Log.Info("Realtime hub shutting down")

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.allClients))
	for client := range h.allClients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	msg := NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"})
	for _, client := range clients {
		_ = client.Send(msg)
		client.Shutdown()
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for h.metrics.ActiveConnections.Load() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("shutdown timeout: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	logger.Log.Info("Realtime hub shutdown complete", zap.Int("closed", len(clients)))
	return nil
}

// SetRateLimitConfig updates the rate limiting configuration
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
