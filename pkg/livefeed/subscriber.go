package livefeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/BelikanM/cub/pkg/remote"
)

type subKey struct {
	table  string
	filter remote.Filter
}

// Subscriber manages live subscriptions on a ChangeFeed. Subscribing again to
// the same (table, filter) pair moves the existing channel to the new handler
// instead of opening a second one.
type Subscriber struct {
	feed remote.ChangeFeed

	mu       sync.Mutex
	channels map[subKey]*channel
}

// NewSubscriber wraps feed.
func NewSubscriber(feed remote.ChangeFeed) *Subscriber {
	return &Subscriber{
		feed:     feed,
		channels: make(map[subKey]*channel),
	}
}

// channel is one remote subscription, shared by every handle bound to its key.
// Only the most recent handle receives events.
type channel struct {
	key    subKey
	remote remote.Subscription

	// deliverMu serializes delivery against rebinds and teardown. current
	// is written under it and may be read without it.
	deliverMu sync.Mutex
	current   atomic.Pointer[Subscription]
}

// Subscription is the handle returned by Subscriber.Subscribe.
type Subscription struct {
	owner   *Subscriber
	ch      *channel
	handler remote.Handler

	once sync.Once
	err  error
}

// Subscribe opens, or rebinds, the channel for (table, filter). A rebind
// detaches the previous handle; it stops receiving events.
func (s *Subscriber) Subscribe(ctx context.Context, table string, filter remote.Filter, h remote.Handler) (*Subscription, error) {
	key := subKey{table: table, filter: filter}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.channels[key]; ok {
		sub := &Subscription{owner: s, ch: ch, handler: h}
		ch.deliverMu.Lock()
		ch.current.Store(sub)
		ch.deliverMu.Unlock()
		return sub, nil
	}

	ch := &channel{key: key}
	sub := &Subscription{owner: s, ch: ch, handler: h}
	ch.current.Store(sub)
	rs, err := s.feed.Subscribe(ctx, table, filter, remote.Handler{
		OnEvent:  ch.deliver,
		OnResync: ch.resync,
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}
	ch.remote = rs
	s.channels[key] = ch
	return sub, nil
}

// Active returns the number of open channels.
func (s *Subscriber) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

func (ch *channel) deliver(ev remote.Event) {
	ch.deliverMu.Lock()
	defer ch.deliverMu.Unlock()
	cur := ch.current.Load()
	if cur == nil || cur.handler.OnEvent == nil {
		return
	}
	cur.handler.OnEvent(ev)
}

func (ch *channel) resync() {
	ch.deliverMu.Lock()
	defer ch.deliverMu.Unlock()
	cur := ch.current.Load()
	if cur == nil || cur.handler.OnResync == nil {
		return
	}
	cur.handler.OnResync()
}

// Attached reports whether the handle still receives events: it has not
// been unsubscribed and no later Subscribe took its channel over.
func (sub *Subscription) Attached() bool {
	return sub.ch.current.Load() == sub
}

// Unsubscribe detaches the handle. The remote channel is closed only when
// the handle is its current one; a handle that was taken over leaves the
// channel to its new holder. Only the first call has an effect; once it
// returns the handler is never called again. It must not be called from
// inside the handler.
func (sub *Subscription) Unsubscribe() error {
	sub.once.Do(func() {
		ch := sub.ch

		sub.owner.mu.Lock()
		ch.deliverMu.Lock()
		holder := ch.current.Load() == sub
		if holder {
			ch.current.Store(nil)
			if sub.owner.channels[ch.key] == ch {
				delete(sub.owner.channels, ch.key)
			}
		}
		ch.deliverMu.Unlock()
		sub.owner.mu.Unlock()

		if holder && ch.remote != nil {
			sub.err = ch.remote.Unsubscribe()
		}
	})
	return sub.err
}
