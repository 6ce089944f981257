// Package changefeed fans row changes out to realtime subscribers. Writes
// are published by the repository after they commit; with a relay
// configured every server instance sees every write.
package changefeed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/metrics"
	"github.com/BelikanM/cub/internal/telemetry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event is the kind of write, as it appears on the wire
type Event string

const (
	Insert Event = "INSERT"
	Update Event = "UPDATE"
	Delete Event = "DELETE"
)

// RelayChannel is the pub/sub channel shared by all instances
const RelayChannel = "cub:changes"

// Change is one committed write
type Change struct {
	Table           string         `json:"table"`
	Event           Event          `json:"event"`
	New             map[string]any `json:"new,omitempty"`
	Old             map[string]any `json:"old,omitempty"`
	CommitTimestamp time.Time      `json:"commit_timestamp"`
}

// Row is the row the change is about: Old for deletes, New otherwise
func (c Change) Row() map[string]any {
	if c.Event == Delete {
		return c.Old
	}
	return c.New
}

// Filter restricts a subscription to rows whose Column equals Value.
// The zero Filter matches every row.
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses "column=eq.value". An empty string is the zero Filter.
func ParseFilter(raw string) (Filter, error) {
	if raw == "" {
		return Filter{}, nil
	}
	col, rest, ok := strings.Cut(raw, "=")
	if !ok || col == "" {
		return Filter{}, fmt.Errorf("filter %q: want column=eq.value", raw)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return Filter{}, fmt.Errorf("filter %q: only eq is supported", raw)
	}
	return Filter{Column: col, Value: val}, nil
}

func (f Filter) String() string {
	if f.Column == "" {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

// Matches reports whether the change concerns a row selected by f. An
// update matches when either image of the row does.
func (f Filter) Matches(c Change) bool {
	if f.Column == "" {
		return true
	}
	if f.matchRow(c.Row()) {
		return true
	}
	return c.Event == Update && f.matchRow(c.Old)
}

func (f Filter) matchRow(row map[string]any) bool {
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

// ToRow converts a model into its JSON column map
func ToRow(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// Publisher accepts committed writes
type Publisher interface {
	Publish(ctx context.Context, c Change)
}

// Relay carries changes between server instances
type Relay interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

type subscription struct {
	table  string
	filter Filter
	fn     func(Change)
}

// Broker delivers changes to in-process subscribers. Delivery happens
// under the broker lock so all subscribers see changes in the same order;
// handlers must not block.
type Broker struct {
	mu    sync.Mutex
	subs  map[uint64]*subscription
	next  uint64
	relay Relay

	ctx    context.Context
	cancel context.CancelFunc
}

var _ Publisher = (*Broker)(nil)

// NewBroker creates a broker with no relay
func NewBroker() *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		subs:   make(map[uint64]*subscription),
		ctx:    ctx,
		cancel: cancel,
	}
}

// UseRelay routes published changes through relay. Changes received from
// the relay, including this instance's own, are delivered locally.
func (b *Broker) UseRelay(relay Relay) error {
	in, err := relay.Subscribe(b.ctx, RelayChannel)
	if err != nil {
		return fmt.Errorf("subscribe relay: %w", err)
	}
	b.mu.Lock()
	b.relay = relay
	b.mu.Unlock()

	go func() {
		for payload := range in {
			var c Change
			if err := json.Unmarshal(payload, &c); err != nil {
				logger.Log.Warn("Dropping malformed relayed change", zap.Error(err))
				continue
			}
			b.dispatch(c)
		}
		logger.Log.Info("Change relay subscription ended")
	}()
	return nil
}

// Subscribe registers fn for changes to table selected by filter. The
// returned function cancels the subscription and is safe to call twice.
func (b *Broker) Subscribe(table string, filter Filter, fn func(Change)) (cancel func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = &subscription{table: table, filter: filter, fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers c to matching subscribers, through the relay when one
// is configured. Delivery is best effort.
func (b *Broker) Publish(ctx context.Context, c Change) {
	if c.CommitTimestamp.IsZero() {
		c.CommitTimestamp = time.Now().UTC()
	}

	metrics.Get().ChangesPublishedTotal.WithLabelValues(c.Table, string(c.Event)).Inc()

	b.mu.Lock()
	relay := b.relay
	b.mu.Unlock()

	if relay != nil {
		ctx, span := telemetry.TraceChangePublish(ctx, c.Table, string(c.Event))
		payload, err := json.Marshal(c)
		if err == nil {
			err = relay.Publish(ctx, RelayChannel, payload)
		}
		telemetry.RecordServiceError(span, err)
		span.End()
		if err == nil {
			return
		}
		logger.Log.Warn("Change relay publish failed, delivering locally",
			logger.WithTable(c.Table), zap.Error(err))
	}
	b.dispatch(c)
}

func (b *Broker) dispatch(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.table == c.Table && s.filter.Matches(c) {
			s.fn(c)
		}
	}
}

// Count returns the number of live subscriptions
func (b *Broker) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops the relay subscription
func (b *Broker) Close() {
	b.cancel()
}
