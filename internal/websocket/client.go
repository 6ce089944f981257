package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/changefeed"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed between frames from the peer. Clients heartbeat every 30s.
	pongWait = 75 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Send buffer size
	sendBufferSize = 256
)

var (
	errClientClosed = errors.New("client connection closed")
	errBufferFull   = errors.New("send buffer full")
)

// Client represents a single WebSocket connection
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	// User information
	UserID   string
	Username string

	// Buffered channel of outbound frames
	send chan []byte

	// Connection metadata
	ConnectedAt time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	ctx    context.Context
	cancel context.CancelFunc

	// subs maps channel name to the feed cancel func
	mu   sync.Mutex
	subs map[string]func()

	closed   atomic.Bool
	draining atomic.Bool
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow checks if an action is allowed and consumes a token
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now

	r.tokens += elapsed * r.refill
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}

	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	config := hub.GetRateLimitConfig()

	return &Client{
		hub:         hub,
		conn:        conn,
		UserID:      userID,
		Username:    username,
		send:        make(chan []byte, sendBufferSize),
		ConnectedAt: time.Now(),
		rateLimiter: NewRateLimiter(config.MaxMessagesPerSecond, config.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
		subs:        make(map[string]func()),
	}
}

// ReadPump reads frames until the connection fails or is closed
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		// Not derived from c.ctx: a cancelled read context closes the
		// connection before WritePump has flushed.
		readCtx, readCancel := context.WithTimeout(context.Background(), pongWait)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				logger.Log.Debug("Client disconnected normally", logger.WithUserID(c.UserID))
			case c.ctx.Err() == nil:
				logger.Log.Warn("Read error for client", logger.WithUserID(c.UserID), zap.Error(err))
				c.hub.metrics.Errors.Add(1)
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.SendError(nil, CodeRateLimited, "Too many messages, please slow down")
			c.hub.metrics.Errors.Add(1)
			continue
		}

		c.hub.metrics.MessagesReceived.Add(1)

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Log.Warn("WebSocket JSON parse error", logger.WithUserID(c.UserID), zap.Error(err))
			c.SendError(nil, CodeBadRequest, "Failed to parse message")
			continue
		}

		c.handleMessage(&message)
	}
}

// WritePump writes queued frames and pings the peer. On server shutdown
// it flushes what is queued before closing.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if c.draining.Load() {
			c.closeWith(websocket.StatusGoingAway, "server shutdown")
		} else {
			c.Close()
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			if c.draining.Load() {
				c.flush()
			}
			return

		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				if c.ctx.Err() == nil {
					logger.Log.Warn("Write error for client", logger.WithUserID(c.UserID), zap.Error(err))
					c.hub.metrics.Errors.Add(1)
				}
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("Ping failed for client", logger.WithUserID(c.UserID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) write(frame []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := c.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return err
	}
	c.hub.metrics.MessagesSent.Add(1)
	return nil
}

func (c *Client) flush() {
	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

// handleMessage routes incoming messages
func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing, MessageTypeHeartbeat:
		c.handlePing(message)
	case MessageTypeSubscribe:
		c.handleSubscribe(message)
	case MessageTypeUnsubscribe:
		c.handleUnsubscribe(message)
	default:
		logger.Log.Debug("Unknown message type",
			logger.WithUserID(c.UserID),
			zap.String("type", message.Type))
		c.SendError(message, CodeBadRequest, fmt.Sprintf("Unknown message type: %s", message.Type))
	}
}

// handlePing responds to ping and heartbeat messages with pong
func (c *Client) handlePing(message *Message) {
	var ping PingPayload
	if err := message.ParsePayload(&ping); err != nil {
		ping.ClientTime = 0
	}

	serverTime := time.Now().UnixMilli()
	pong := PongPayload{ServerTime: serverTime}
	if ping.ClientTime > 0 {
		pong.ClientTime = ping.ClientTime
		pong.Latency = serverTime - ping.ClientTime
	}

	// Best-effort pong response - connection may be closing
	_ = c.Send(NewReply(message, MessageTypePong, pong))
}

func (c *Client) handleSubscribe(message *Message) {
	var p SubscribePayload
	if err := message.ParsePayload(&p); err != nil || p.Channel == "" || p.Table == "" {
		c.SendError(message, CodeBadRequest, "subscribe needs a channel and a table")
		return
	}

	filter, err := changefeed.ParseFilter(p.Filter)
	if err != nil {
		c.SendError(message, CodeValidation, err.Error())
		return
	}
	tableOK, columnOK := c.hub.rules.Filterable(p.Table, filter.Column)
	if !tableOK {
		c.SendError(message, CodeValidation, fmt.Sprintf("unknown table %q", p.Table))
		return
	}
	if !columnOK {
		c.SendError(message, CodeValidation, fmt.Sprintf("%s cannot be filtered by %s", p.Table, filter.Column))
		return
	}

	c.mu.Lock()
	previous, replacing := c.subs[p.Channel]
	limit := c.hub.GetRateLimitConfig().MaxSubscriptions
	if !replacing && limit > 0 && len(c.subs) >= limit {
		c.mu.Unlock()
		c.SendError(message, CodeForbidden, "too many subscriptions")
		return
	}
	// Reserve the name; Close may run while the feed subscription is made
	c.subs[p.Channel] = func() {}
	c.mu.Unlock()
	if !replacing {
		c.hub.metrics.ActiveSubscriptions.Add(1)
		metrics.Get().RealtimeSubscriptions.Inc()
	}

	if replacing {
		previous()
	}

	channel := p.Channel
	cancel := c.hub.feed.Subscribe(p.Table, filter, func(ch changefeed.Change) {
		c.deliver(channel, ch)
	})

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		cancel()
		return
	}
	c.subs[channel] = cancel
	c.mu.Unlock()

	logger.Log.Debug("Subscribed",
		logger.WithUserID(c.UserID),
		logger.WithTable(p.Table),
		zap.String("channel", channel),
		zap.String("filter", filter.String()))

	_ = c.Send(NewReply(message, MessageTypeSubscribed, SubscribedPayload{
		Channel: channel,
		Table:   p.Table,
		Filter:  filter.String(),
	}))
}

func (c *Client) handleUnsubscribe(message *Message) {
	var p SubscribePayload
	if err := message.ParsePayload(&p); err != nil || p.Channel == "" {
		c.SendError(message, CodeBadRequest, "unsubscribe needs a channel")
		return
	}

	c.mu.Lock()
	cancel, ok := c.subs[p.Channel]
	delete(c.subs, p.Channel)
	c.mu.Unlock()

	if !ok {
		return
	}
	cancel()
	c.hub.metrics.ActiveSubscriptions.Add(-1)
	metrics.Get().RealtimeSubscriptions.Dec()
}

// deliver runs on the publisher's goroutine and must not block
func (c *Client) deliver(channel string, ch changefeed.Change) {
	msg := NewMessage(MessageTypeChange, ChangePayload{
		Channel:         channel,
		Table:           ch.Table,
		Event:           ch.Event,
		New:             ch.New,
		Old:             ch.Old,
		CommitTimestamp: ch.CommitTimestamp,
	})
	if err := c.Send(msg); errors.Is(err, errBufferFull) {
		// The client cannot catch up; closing makes it reconnect and
		// backfill instead of silently missing rows.
		logger.Log.Warn("Dropping slow realtime client", logger.WithUserID(c.UserID))
		c.hub.metrics.ConnectionsDropped.Add(1)
		go c.closeWith(websocket.StatusTryAgainLater, "slow consumer")
	}
}

// Send queues a message without blocking
func (c *Client) Send(message *Message) error {
	if c.closed.Load() {
		return errClientClosed
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		metrics.Get().RealtimeMessagesSent.WithLabelValues(message.Type).Inc()
		return nil
	default:
		metrics.Get().RealtimeDroppedTotal.Inc()
		return errBufferFull
	}
}

// SendError sends an error payload, as a reply when original is set
func (c *Client) SendError(original *Message, code, message string) {
	msg := NewErrorMessage(code, message)
	if original != nil {
		msg.ReplyTo = original.ID
	}
	_ = c.Send(msg)
}

// Subscriptions returns the number of open channels
func (c *Client) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Shutdown flushes queued frames and closes with StatusGoingAway
func (c *Client) Shutdown() {
	c.draining.Store(true)
	c.cancel()
}

// Close closes the client connection
func (c *Client) Close() {
	c.closeWith(websocket.StatusNormalClosure, "closing")
}

func (c *Client) closeWith(status websocket.StatusCode, reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()

	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]func())
	c.mu.Unlock()

	for _, cancel := range subs {
		cancel()
		c.hub.metrics.ActiveSubscriptions.Add(-1)
		metrics.Get().RealtimeSubscriptions.Dec()
	}

	_ = c.conn.Close(status, reason)
}

// IsClosed returns whether the client connection is closed
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// GetInfo returns client information
func (c *Client) GetInfo() ClientInfo {
	return ClientInfo{
		UserID:        c.UserID,
		Username:      c.Username,
		ConnectedAt:   c.ConnectedAt,
		RemoteAddr:    c.RemoteAddr,
		UserAgent:     c.UserAgent,
		Subscriptions: c.Subscriptions(),
	}
}

// ClientInfo represents public client information
type ClientInfo struct {
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	ConnectedAt   time.Time `json:"connected_at"`
	RemoteAddr    string    `json:"remote_addr"`
	UserAgent     string    `json:"user_agent"`
	Subscriptions int       `json:"subscriptions"`
}
