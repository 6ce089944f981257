package livefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/remote"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func item(id string, minute int) remote.Item {
	return remote.Item{
		ID:        id,
		OwnerID:   "alice",
		CreatedAt: baseTime.Add(time.Duration(minute) * time.Minute),
		Fields:    map[string]any{"content": "post " + id},
	}
}

func ids(items []remote.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// memStore is an in-memory RemoteStore acting as caller.
type memStore struct {
	mu     sync.Mutex
	caller string
	rows   map[string][]remote.Item
	seq    int
	calls  map[string]int
	// failWith, when set, is returned by the next call.
	failWith error
}

func newMemStore(caller string) *memStore {
	return &memStore{
		caller: caller,
		rows:   make(map[string][]remote.Item),
		calls:  make(map[string]int),
	}
}

func (s *memStore) seed(table string, items ...remote.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[table] = append(s.rows[table], items...)
}

func (s *memStore) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *memStore) takeFailure(op string) error {
	s.calls[op]++
	err := s.failWith
	s.failWith = nil
	return err
}

func matches(table string, f remote.Filter, it remote.Item) bool {
	if f.IsZero() {
		return true
	}
	if f.Column == remote.OwnerColumn(table) {
		return it.OwnerID == f.Value
	}
	return it.String(f.Column) == f.Value
}

func (s *memStore) Query(_ context.Context, table string, filter remote.Filter, _ remote.Order) ([]remote.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("query"); err != nil {
		return nil, err
	}
	var out []remote.Item
	for _, it := range s.rows[table] {
		if matches(table, filter, it) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, table string, fields map[string]any) (remote.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("insert"); err != nil {
		return remote.Item{}, err
	}
	s.seq++
	it := remote.Item{
		ID:        fmt.Sprintf("%s-%d", table, s.seq),
		OwnerID:   s.caller,
		CreatedAt: baseTime.Add(time.Duration(100+s.seq) * time.Minute),
		Fields:    make(map[string]any, len(fields)),
	}
	for k, v := range fields {
		it.Fields[k] = v
	}
	s.rows[table] = append(s.rows[table], it)
	return it.Clone(), nil
}

func (s *memStore) Update(_ context.Context, table, id string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("update"); err != nil {
		return err
	}
	for i, it := range s.rows[table] {
		if it.ID == id {
			for k, v := range partial {
				s.rows[table][i].Fields[k] = v
			}
			return nil
		}
	}
	return cuberrors.NotFoundError(table, id)
}

func (s *memStore) Delete(_ context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("delete"); err != nil {
		return err
	}
	rows := s.rows[table]
	for i, it := range rows {
		if it.ID == id {
			if it.OwnerID != s.caller {
				return cuberrors.FromStatus(403, "not the owner")
			}
			s.rows[table] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return cuberrors.NotFoundError(table, id)
}

// fakeFeed records subscriptions and lets tests push events.
type fakeFeed struct {
	mu           sync.Mutex
	handlers     map[*fakeSub]remote.Handler
	opened       int
	unsubscribed int
	failWith     error
}

type fakeSub struct {
	feed  *fakeFeed
	table string
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{handlers: make(map[*fakeSub]remote.Handler)}
}

func (f *fakeFeed) Subscribe(_ context.Context, table string, _ remote.Filter, h remote.Handler) (remote.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	sub := &fakeSub{feed: f, table: table}
	f.handlers[sub] = h
	f.opened++
	return sub, nil
}

func (s *fakeSub) Unsubscribe() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	delete(s.feed.handlers, s)
	s.feed.unsubscribed++
	return nil
}

func (f *fakeFeed) snapshot(table string) []remote.Handler {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hs []remote.Handler
	for sub, h := range f.handlers {
		if sub.table == table {
			hs = append(hs, h)
		}
	}
	return hs
}

func (f *fakeFeed) emit(table string, ev remote.Event) {
	for _, h := range f.snapshot(table) {
		h.OnEvent(ev)
	}
}

func (f *fakeFeed) resync(table string) {
	for _, h := range f.snapshot(table) {
		h.OnResync()
	}
}
