package remote

import (
	"context"
	"fmt"
)

// EventKind tags a row change.
type EventKind int

const (
	Created EventKind = iota + 1
	Updated
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// KindFromWire maps the backend's INSERT/UPDATE/DELETE tags onto EventKind.
func KindFromWire(tag string) (EventKind, bool) {
	switch tag {
	case "INSERT", "created":
		return Created, true
	case "UPDATE", "updated":
		return Updated, true
	case "DELETE", "deleted":
		return Deleted, true
	default:
		return 0, false
	}
}

// Event is one change pushed by a feed. For Deleted only Item.ID is
// guaranteed to be set.
type Event struct {
	Kind EventKind
	Item Item
}

// Handler receives the events of one subscription. OnEvent is called from a
// single goroutine in emission order. OnResync is called after the feed
// reconnected and may have missed events; it runs on the same goroutine
// before any event received on the new connection.
type Handler struct {
	OnEvent  func(Event)
	OnResync func()
}

// Subscription is a live channel opened by ChangeFeed.Subscribe.
type Subscription interface {
	// Unsubscribe stops delivery. When it returns no further call reaches the handler.
	Unsubscribe() error
}

// ChangeFeed pushes row changes for one table, optionally scoped by a filter.
type ChangeFeed interface {
	Subscribe(ctx context.Context, table string, filter Filter, h Handler) (Subscription, error)
}
