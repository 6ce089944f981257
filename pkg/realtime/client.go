// Package realtime is the change feed half of the realtime backend: a
// websocket channel that pushes INSERT/UPDATE/DELETE row payloads for the
// tables a client subscribed to. Rows are read and written through
// api.NewTableStore.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/remote"
)

// Config holds WebSocket client configuration
type Config struct {
	// URL is the ws:// or wss:// endpoint of the realtime channel
	URL                  string
	ConnectTimeout       time.Duration
	AckTimeout           time.Duration
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int // negative means unlimited
}

// DefaultConfig returns a development configuration
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:8787/api/v1/realtime",
		ConnectTimeout:       15 * time.Second,
		AckTimeout:           10 * time.Second,
		HeartbeatInterval:    30 * time.Second,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: -1,
	}
}

// ConfigFromBaseURL derives the websocket URL from the HTTP API base URL.
func ConfigFromBaseURL(baseURL, path string) (Config, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return Config{}, fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	cfg := DefaultConfig()
	cfg.URL = u.String()
	return cfg, nil
}

// ConnectionState represents the state of the WebSocket connection
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

// ConnectionStats holds connection statistics
type ConnectionStats struct {
	MessagesReceived int64
	MessagesSent     int64
	ReconnectCount   int
	LastError        string
	ConnectedAt      time.Time
	DisconnectedAt   time.Time
}

// Client is a ChangeFeed over the realtime websocket. It reconnects with
// exponential backoff, re-sends every live subscription, and asks each
// subscriber to resync before reading from the new connection.
type Client struct {
	config Config
	token  string
	state  atomic.Value // ConnectionState
	seq    atomic.Int64

	mu       sync.RWMutex
	conn     *websocket.Conn
	channels map[string]*channel
	pending  map[string]chan message

	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsLock sync.RWMutex
	stats     ConnectionStats
}

var _ remote.ChangeFeed = (*Client)(nil)

// NewClient creates a new realtime client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config:   config,
		channels: make(map[string]*channel),
		pending:  make(map[string]chan message),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.state.Store(StateDisconnected)
	return c
}

// Connect dials the channel with token and starts the read and heartbeat loops
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.setState(StateConnecting)
	conn, err := c.dial(ctx)
	if err != nil {
		c.setState(StateError)
		c.recordError(err.Error())
		return cuberrors.ConnectivityError("realtime channel unavailable", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.setState(StateConnected)
	c.recordConnected()

	c.wg.Add(2)
	go c.readLoop(conn)
	go c.heartbeatLoop()

	logger.Debug("Realtime connected", "url", c.config.URL)
	return nil
}

// Close stops reconnecting and closes the connection
func (c *Client) Close() error {
	c.cancel()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	var err error
	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = conn.Close()
	}
	c.wg.Wait()

	c.setState(StateDisconnected)
	c.recordDisconnected()
	logger.Debug("Realtime disconnected")
	return err
}

// IsConnected returns true if the connection is established
func (c *Client) IsConnected() bool {
	return c.getState() == StateConnected
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	return c.getState()
}

// GetStats returns connection statistics
func (c *Client) GetStats() ConnectionStats {
	c.statsLock.RLock()
	defer c.statsLock.RUnlock()
	return c.stats
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	return conn, err
}

func (c *Client) send(msg message) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return cuberrors.ConnectivityError("realtime channel not connected", nil)
	}
	return c.sendOn(conn, msg)
}

func (c *Client) sendOn(conn *websocket.Conn, msg message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		return cuberrors.ConnectivityError("realtime write failed", err)
	}
	c.recordMessageSent()
	return nil
}

func (c *Client) nextRef() string {
	return fmt.Sprintf("%d", c.seq.Add(1))
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.ctx.Done():
				return
			default:
			}
			c.recordError(err.Error())
			logger.Warn("Realtime read error", "error", err)
			c.wg.Add(1)
			go c.handleDisconnect(conn)
			return
		}
		c.recordMessageReceived()
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg message) {
	switch msg.Type {
	case typeChange:
		var p changePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			logger.Warn("Bad change payload", "error", err)
			return
		}
		c.mu.RLock()
		ch := c.channels[p.Channel]
		c.mu.RUnlock()
		if ch == nil {
			return
		}
		ev, ok := p.event()
		if !ok {
			logger.Debug("Change dropped", "channel", p.Channel, "event", p.Event)
			return
		}
		ch.deliver(ev)
	case typeSubscribed, typeError:
		if msg.ReplyTo == "" {
			if msg.Type == typeError {
				logger.Warn("Realtime error", "payload", string(msg.Payload))
			}
			return
		}
		c.mu.Lock()
		waiter := c.pending[msg.ReplyTo]
		delete(c.pending, msg.ReplyTo)
		c.mu.Unlock()
		if waiter != nil {
			waiter <- msg
		}
	case typePong, typeSystem:
	default:
		logger.Debug("Unhandled realtime message", "type", msg.Type)
	}
}

func (c *Client) heartbeatLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.IsConnected() {
				if err := c.send(message{Type: typeHeartbeat}); err != nil {
					logger.Debug("Failed to send heartbeat", "error", err)
				}
			}
		}
	}
}

func (c *Client) handleDisconnect(dead *websocket.Conn) {
	defer c.wg.Done()

	c.mu.Lock()
	if c.conn == dead {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = dead.Close()

	c.setState(StateReconnecting)
	c.recordDisconnected()

	delay := c.config.ReconnectBaseDelay
	for attempt := 0; ; attempt++ {
		if c.config.MaxReconnectAttempts >= 0 && attempt >= c.config.MaxReconnectAttempts {
			c.setState(StateError)
			logger.Error("Max reconnection attempts reached")
			return
		}

		jitter := time.Duration(rand.Int63n(int64(delay/4) + 1))
		wait := delay + jitter
		logger.Debug("Reconnecting realtime", "attempt", attempt+1, "wait_ms", wait.Milliseconds())

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(wait):
		}

		conn, err := c.dial(c.ctx)
		if err != nil {
			c.recordError(err.Error())
			delay *= 2
			if delay > c.config.ReconnectMaxDelay {
				delay = c.config.ReconnectMaxDelay
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		channels := make([]*channel, 0, len(c.channels))
		for _, ch := range c.channels {
			channels = append(channels, ch)
		}
		c.mu.Unlock()

		// Server state is per-connection: re-send every subscription, then
		// let subscribers backfill what they missed before reading again.
		for _, ch := range channels {
			if err := c.sendOn(conn, ch.subscribeMessage(c.nextRef())); err != nil {
				logger.Warn("Resubscribe failed", "channel", ch.name, "error", err)
			}
		}
		c.setState(StateConnected)
		c.recordReconnected()
		logger.Info("Realtime reconnected", "channels", len(channels))

		for _, ch := range channels {
			ch.resync()
		}

		select {
		case <-c.ctx.Done():
			_ = conn.Close()
			return
		default:
		}
		c.wg.Add(1)
		go c.readLoop(conn)
		return
	}
}

func (c *Client) setState(state ConnectionState) {
	c.state.Store(state)
}

func (c *Client) getState() ConnectionState {
	return c.state.Load().(ConnectionState)
}

func (c *Client) recordMessageReceived() {
	c.statsLock.Lock()
	c.stats.MessagesReceived++
	c.statsLock.Unlock()
}

func (c *Client) recordMessageSent() {
	c.statsLock.Lock()
	c.stats.MessagesSent++
	c.statsLock.Unlock()
}

func (c *Client) recordError(errMsg string) {
	c.statsLock.Lock()
	c.stats.LastError = errMsg
	c.statsLock.Unlock()
}

func (c *Client) recordConnected() {
	c.statsLock.Lock()
	c.stats.ConnectedAt = time.Now()
	c.statsLock.Unlock()
}

func (c *Client) recordReconnected() {
	c.statsLock.Lock()
	c.stats.ConnectedAt = time.Now()
	c.stats.ReconnectCount++
	c.statsLock.Unlock()
}

func (c *Client) recordDisconnected() {
	c.statsLock.Lock()
	c.stats.DisconnectedAt = time.Now()
	c.statsLock.Unlock()
}
