package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/remote"
)

// Message types on the realtime channel.
const (
	typeSubscribe   = "subscribe"
	typeUnsubscribe = "unsubscribe"
	typeSubscribed  = "subscribed"
	typeChange      = "change"
	typeHeartbeat   = "heartbeat"
	typePong        = "pong"
	typeError       = "error"
	typeSystem      = "system"
)

type message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ID        string          `json:"id,omitempty"`
	ReplyTo   string          `json:"reply_to,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type subscribePayload struct {
	Channel string `json:"channel"`
	Table   string `json:"table"`
	Filter  string `json:"filter,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type changePayload struct {
	Channel string         `json:"channel"`
	Table   string         `json:"table"`
	Event   string         `json:"event"`
	New     map[string]any `json:"new"`
	Old     map[string]any `json:"old"`
}

func (p changePayload) event() (remote.Event, bool) {
	kind, ok := remote.KindFromWire(p.Event)
	if !ok {
		return remote.Event{}, false
	}
	row := p.New
	if kind == remote.Deleted || len(row) == 0 {
		row = p.Old
	}
	item, err := remote.DecodeRow(p.Table, row)
	if err != nil {
		logger.Warn("Bad change row", "table", p.Table, "error", err)
		return remote.Event{}, false
	}
	return remote.Event{Kind: kind, Item: item}, true
}

// FilterString renders f as the "column=eq.value" form the server parses.
func FilterString(f remote.Filter) string {
	if f.IsZero() {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

func mustPayload(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// channel is one server-side subscription.
type channel struct {
	client *Client
	name   string
	table  string
	filter remote.Filter

	mu      sync.Mutex
	handler remote.Handler
	closed  bool

	once sync.Once
	err  error
}

func (ch *channel) subscribeMessage(ref string) message {
	return message{
		Type: typeSubscribe,
		ID:   ref,
		Payload: mustPayload(subscribePayload{
			Channel: ch.name,
			Table:   ch.table,
			Filter:  FilterString(ch.filter),
		}),
	}
}

func (ch *channel) deliver(ev remote.Event) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed || ch.handler.OnEvent == nil {
		return
	}
	ch.handler.OnEvent(ev)
}

func (ch *channel) resync() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed || ch.handler.OnResync == nil {
		return
	}
	ch.handler.OnResync()
}

// Unsubscribe stops delivery and tells the server to drop the channel.
func (ch *channel) Unsubscribe() error {
	ch.once.Do(func() {
		ch.mu.Lock()
		ch.closed = true
		ch.handler = remote.Handler{}
		ch.mu.Unlock()

		c := ch.client
		c.mu.Lock()
		delete(c.channels, ch.name)
		c.mu.Unlock()

		if !c.IsConnected() {
			return
		}
		ch.err = c.send(message{
			Type:    typeUnsubscribe,
			Payload: mustPayload(subscribePayload{Channel: ch.name, Table: ch.table}),
		})
	})
	return ch.err
}

// Subscribe opens a channel for table rows matching filter and waits for the
// server to acknowledge it.
func (c *Client) Subscribe(ctx context.Context, table string, filter remote.Filter, h remote.Handler) (remote.Subscription, error) {
	if !c.IsConnected() {
		return nil, cuberrors.ConnectivityError("realtime channel not connected", nil)
	}

	ref := c.nextRef()
	ch := &channel{
		client:  c,
		name:    fmt.Sprintf("%s:%s#%s", table, FilterString(filter), ref),
		table:   table,
		filter:  filter,
		handler: h,
	}
	reply := make(chan message, 1)

	c.mu.Lock()
	c.channels[ch.name] = ch
	c.pending[ref] = reply
	c.mu.Unlock()

	fail := func(err error) (remote.Subscription, error) {
		c.mu.Lock()
		delete(c.channels, ch.name)
		delete(c.pending, ref)
		c.mu.Unlock()
		return nil, err
	}

	if err := c.send(ch.subscribeMessage(ref)); err != nil {
		return fail(err)
	}

	timer := time.NewTimer(c.config.AckTimeout)
	defer timer.Stop()

	select {
	case msg := <-reply:
		if msg.Type == typeError {
			return fail(subscribeError(msg.Payload))
		}
		logger.Debug("Subscribed", "channel", ch.name)
		return ch, nil
	case <-timer.C:
		return fail(cuberrors.ConnectivityError("subscribe to "+table+" timed out", nil))
	case <-ctx.Done():
		return fail(cuberrors.ConnectivityError("subscribe to "+table+" cancelled", ctx.Err()))
	case <-c.ctx.Done():
		return fail(cuberrors.ConnectivityError("realtime client closed", nil))
	}
}

func subscribeError(raw json.RawMessage) error {
	var p errorPayload
	_ = json.Unmarshal(raw, &p)
	if p.Message == "" {
		p.Message = "subscribe rejected"
	}
	switch p.Code {
	case "UNAUTHORIZED", "FORBIDDEN":
		return cuberrors.AuthorizationError(p.Message)
	case "VALIDATION_ERROR", "BAD_REQUEST":
		return cuberrors.New(cuberrors.ErrorTypeValidation, p.Message, nil)
	default:
		return cuberrors.New(cuberrors.ErrorTypeUnknown, p.Message, nil)
	}
}
