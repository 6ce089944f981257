// Package remote defines the boundary between the live list core and the
// backends that hold its rows. Each backend ships one adapter implementing
// RemoteStore, and optionally ChangeFeed when it can push row changes.
package remote

import (
	"context"
	"time"
)

// Table names shared by every adapter.
const (
	TablePosts   = "posts"
	TableMedia   = "media"
	TableFollows = "follows"
)

// Item is one row: a post, a media asset or a follow edge.
type Item struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	// Fields carries the kind-specific payload and the mutable fields.
	Fields map[string]any
}

// String returns the named field as a string, or "" when absent.
func (i Item) String(name string) string {
	if v, ok := i.Fields[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the named field as an int. JSON numbers decode to float64.
func (i Item) Int(name string) int {
	switch v := i.Fields[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Clone copies the item so callers can't alias the Fields map.
func (i Item) Clone() Item {
	out := i
	if i.Fields != nil {
		out.Fields = make(map[string]any, len(i.Fields))
		for k, v := range i.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Filter restricts a query or subscription to rows where Column equals Value.
// The zero Filter matches everything.
type Filter struct {
	Column string
	Value  string
}

// IsZero reports whether the filter matches every row.
func (f Filter) IsZero() bool {
	return f.Column == ""
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Order is the sort applied by Query. The only sort key is created_at.
type Order struct {
	Descending bool
}

// NewestFirst is the display order of every list.
var NewestFirst = Order{Descending: true}

// RemoteStore is the relational backend holding items. All operations are
// single-row. Errors are *errors.StoreError values from pkg/errors.
type RemoteStore interface {
	Query(ctx context.Context, table string, filter Filter, order Order) ([]Item, error)
	Insert(ctx context.Context, table string, fields map[string]any) (Item, error)
	Update(ctx context.Context, table, id string, partial map[string]any) error
	Delete(ctx context.Context, table, id string) error
}
