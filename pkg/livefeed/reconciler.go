// Package livefeed keeps an in-memory, newest-first list of remote rows in
// sync with a RemoteStore and, when one is available, its ChangeFeed.
package livefeed

import (
	"sort"
	"sync"

	"github.com/BelikanM/cub/pkg/remote"
)

// Reconciler holds the ordered view of one logical feed. The view never holds
// two entries with the same id and is always sorted by CreatedAt descending,
// ties broken by id descending. All operations are total: events that don't
// apply to the current view are ignored.
type Reconciler struct {
	mu    sync.RWMutex
	items []remote.Item
	ids   map[string]struct{}
}

// NewReconciler returns an empty view.
func NewReconciler() *Reconciler {
	return &Reconciler{ids: make(map[string]struct{})}
}

// before reports whether a sorts ahead of b in the view.
func before(a, b remote.Item) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// ReplaceAll swaps the view for items, sorted. Later duplicates of an id are dropped.
func (r *Reconciler) ReplaceAll(items []remote.Item) {
	next := make([]remote.Item, 0, len(items))
	ids := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := ids[it.ID]; dup {
			continue
		}
		ids[it.ID] = struct{}{}
		next = append(next, it.Clone())
	}
	sort.SliceStable(next, func(i, j int) bool { return before(next[i], next[j]) })

	r.mu.Lock()
	r.items = next
	r.ids = ids
	r.mu.Unlock()
}

// ApplyCreated inserts item at its sorted position. Returns false when the id
// is already present.
func (r *Reconciler) ApplyCreated(item remote.Item) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[item.ID]; ok {
		return false
	}
	pos := sort.Search(len(r.items), func(i int) bool { return before(item, r.items[i]) })
	r.items = append(r.items, remote.Item{})
	copy(r.items[pos+1:], r.items[pos:])
	r.items[pos] = item.Clone()
	r.ids[item.ID] = struct{}{}
	return true
}

// ApplyUpdated merges item.Fields into the existing entry. Identity, owner and
// creation time are immutable and kept from the existing entry. Returns false
// when the id is absent.
func (r *Reconciler) ApplyUpdated(item remote.Item) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(item.ID)
	if idx < 0 {
		return false
	}
	cur := r.items[idx].Clone()
	if cur.Fields == nil {
		cur.Fields = make(map[string]any, len(item.Fields))
	}
	for k, v := range item.Fields {
		cur.Fields[k] = v
	}
	r.items[idx] = cur
	return true
}

// ApplyDeleted removes the entry with id. Returns false when absent.
func (r *Reconciler) ApplyDeleted(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return false
	}
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	delete(r.ids, id)
	return true
}

// Apply dispatches a tagged event to the matching operation.
func (r *Reconciler) Apply(ev remote.Event) bool {
	switch ev.Kind {
	case remote.Created:
		return r.ApplyCreated(ev.Item)
	case remote.Updated:
		return r.ApplyUpdated(ev.Item)
	case remote.Deleted:
		return r.ApplyDeleted(ev.Item.ID)
	default:
		return false
	}
}

// Items returns a copy of the view in display order.
func (r *Reconciler) Items() []remote.Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]remote.Item, len(r.items))
	for i, it := range r.items {
		out[i] = it.Clone()
	}
	return out
}

// Get returns the entry with id.
func (r *Reconciler) Get(id string) (remote.Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return remote.Item{}, false
	}
	return r.items[idx].Clone(), true
}

// Find returns the first entry, in display order, for which match is true.
func (r *Reconciler) Find(match func(remote.Item) bool) (remote.Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if match(it) {
			return it.Clone(), true
		}
	}
	return remote.Item{}, false
}

// Len returns the number of entries in the view.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Reconciler) indexLocked(id string) int {
	if _, ok := r.ids[id]; !ok {
		return -1
	}
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}
