package livefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/remote"
)

// resyncTimeout bounds the refresh run after a feed reconnect.
const resyncTimeout = 30 * time.Second

// ErrViewClosed is returned by operations on a closed view.
var ErrViewClosed = errors.New("livefeed: view closed")

// ViewOptions configures a View.
type ViewOptions struct {
	Table  string
	Filter remote.Filter
	// OnChange is called with a snapshot of the list after every change.
	OnChange func([]remote.Item)
	// OnError receives errors that have no caller to return to, such as a
	// failed refresh after reconnect.
	OnError func(error)
}

// View is one live list: the posts feed, a user's media or a user's follows.
type View struct {
	store      remote.RemoteStore
	subscriber *Subscriber
	opts       ViewOptions
	rec        *Reconciler

	mu     sync.Mutex
	sub    *Subscription
	closed bool
}

// NewView creates a view over store. subscriber may be nil for backends
// without a change feed; such views are refreshed after each mutation.
func NewView(store remote.RemoteStore, subscriber *Subscriber, opts ViewOptions) *View {
	return &View{
		store:      store,
		subscriber: subscriber,
		opts:       opts,
		rec:        NewReconciler(),
	}
}

// Table returns the table backing the view.
func (v *View) Table() string { return v.opts.Table }

// Filter returns the row filter of the view.
func (v *View) Filter() remote.Filter { return v.opts.Filter }

// Open subscribes to the change feed, when there is one, and loads the
// initial list. Subscribing first means rows written while the query is in
// flight still arrive as events.
func (v *View) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	needSub := v.subscriber != nil && v.sub == nil
	v.mu.Unlock()

	if needSub {
		sub, err := v.subscriber.Subscribe(ctx, v.opts.Table, v.opts.Filter, remote.Handler{
			OnEvent:  v.handleEvent,
			OnResync: v.handleResync,
		})
		if err != nil {
			logger.Warn("Live feed unavailable, falling back to refetch", "table", v.opts.Table, "error", err)
		} else {
			v.mu.Lock()
			v.sub = sub
			v.mu.Unlock()
		}
	}

	return v.Refresh(ctx)
}

// Live reports whether the view still receives change feed events. A view
// whose channel was taken over by another view on the same key is not live.
func (v *View) Live() bool {
	v.mu.Lock()
	sub, closed := v.sub, v.closed
	v.mu.Unlock()
	return sub != nil && !closed && sub.Attached()
}

// Refresh refetches the whole list and replaces the view.
func (v *View) Refresh(ctx context.Context) error {
	if v.isClosed() {
		return ErrViewClosed
	}
	items, err := v.store.Query(ctx, v.opts.Table, v.opts.Filter, remote.NewestFirst)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", v.opts.Table, cuberrors.CategorizeError(err))
	}
	if v.isClosed() {
		return ErrViewClosed
	}
	v.rec.ReplaceAll(items)
	logger.Debug("View refreshed", "table", v.opts.Table, "items", len(items))
	v.notify()
	return nil
}

// Items returns the current list in display order.
func (v *View) Items() []remote.Item {
	return v.rec.Items()
}

// Reconciler exposes the view's reconciler.
func (v *View) Reconciler() *Reconciler {
	return v.rec
}

// Close tears down the feed subscription before the view stops accepting
// updates. Calling it more than once is harmless.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}

	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return err
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *View) handleEvent(ev remote.Event) {
	if v.rec.Apply(ev) {
		v.notify()
		return
	}
	logger.Debug("Event ignored", "table", v.opts.Table, "kind", ev.Kind, "id", ev.Item.ID)
}

func (v *View) handleResync() {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	logger.Info("Feed reconnected, refreshing", "table", v.opts.Table)
	if err := v.Refresh(ctx); err != nil && !errors.Is(err, ErrViewClosed) {
		v.reportError(err)
	}
}

// applyLocal runs a reconciler operation on behalf of the dispatcher.
func (v *View) applyLocal(ev remote.Event) {
	if v.isClosed() {
		return
	}
	if v.rec.Apply(ev) {
		v.notify()
	}
}

func (v *View) notify() {
	if v.opts.OnChange != nil {
		v.opts.OnChange(v.rec.Items())
	}
}

func (v *View) reportError(err error) {
	logger.Error("Live view error", "table", v.opts.Table, "error", err)
	if v.opts.OnError != nil {
		v.opts.OnError(err)
	}
}
