package livefeed

import (
	"context"
	"errors"
	"fmt"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/remote"
)

// Dispatcher turns user actions into exactly one RemoteStore call each and
// keeps the view in step with the result.
type Dispatcher struct {
	store    remote.RemoteStore
	view     *View
	schema   Schema
	policy   OwnerPolicy
	callerID string
}

// NewDispatcher binds a dispatcher to view on behalf of callerID.
func NewDispatcher(store remote.RemoteStore, view *View, callerID string) *Dispatcher {
	schema, ok := SchemaFor(view.Table())
	if !ok {
		schema = Schema{Table: view.Table()}
	}
	return &Dispatcher{
		store:    store,
		view:     view,
		schema:   schema,
		policy:   OwnerPolicy{Schema: schema},
		callerID: callerID,
	}
}

// CreateItem validates fields locally, inserts the row and lands it in the
// view. A feed echo of the same row is absorbed by the reconciler.
func (d *Dispatcher) CreateItem(ctx context.Context, fields map[string]any) (remote.Item, error) {
	if err := d.schema.ValidateCreate(fields); err != nil {
		return remote.Item{}, err
	}
	if err := d.policy.CheckCreate(d.callerID, fields); err != nil {
		return remote.Item{}, err
	}

	item, err := d.store.Insert(ctx, d.schema.Table, fields)
	if err != nil {
		return remote.Item{}, d.wrap("create", "", err)
	}
	logger.Debug("Item created", "table", d.schema.Table, "id", item.ID)

	d.view.applyLocal(remote.Event{Kind: remote.Created, Item: item})
	d.refreshIfDetached(ctx)
	return item, nil
}

// DeleteItem deletes a row owned by the caller. Ownership violations come
// back as authorization errors, distinct from connectivity failures.
func (d *Dispatcher) DeleteItem(ctx context.Context, id string) error {
	if item, ok := d.view.rec.Get(id); ok {
		if err := d.policy.Check(d.callerID, item, nil); err != nil {
			return err
		}
	}

	if err := d.store.Delete(ctx, d.schema.Table, id); err != nil {
		return d.wrap("delete", id, err)
	}
	logger.Debug("Item deleted", "table", d.schema.Table, "id", id)

	d.view.applyLocal(remote.Event{Kind: remote.Deleted, Item: remote.Item{ID: id}})
	d.refreshIfDetached(ctx)
	return nil
}

// UpdateField writes a partial update. On failure the view is left as it was
// and stays stale until the next refresh.
func (d *Dispatcher) UpdateField(ctx context.Context, id string, partial map[string]any) error {
	if err := d.schema.ValidateUpdate(partial); err != nil {
		return err
	}
	if item, ok := d.view.rec.Get(id); ok {
		if err := d.policy.Check(d.callerID, item, partial); err != nil {
			return err
		}
	}

	if err := d.store.Update(ctx, d.schema.Table, id, partial); err != nil {
		return d.wrap("update", id, err)
	}

	d.view.applyLocal(remote.Event{Kind: remote.Updated, Item: remote.Item{ID: id, Fields: partial}})
	d.refreshIfDetached(ctx)
	return nil
}

// Like bumps the like counter of a post by one, based on the count in the view.
func (d *Dispatcher) Like(ctx context.Context, id string) error {
	item, ok := d.view.rec.Get(id)
	if !ok {
		return cuberrors.NotFoundError(d.schema.Table, id)
	}
	return d.UpdateField(ctx, id, map[string]any{"likes": item.Int("likes") + 1})
}

// ToggleFollow follows followedID, or unfollows when an edge already exists.
// It reports whether the caller follows the user afterwards.
func (d *Dispatcher) ToggleFollow(ctx context.Context, followedID string) (bool, error) {
	if followedID == d.callerID {
		return false, cuberrors.ValidationError("followed_id", "cannot follow yourself")
	}
	edge, ok := d.view.rec.Find(func(it remote.Item) bool {
		return it.OwnerID == d.callerID && it.String("followed_id") == followedID
	})
	if ok {
		return false, d.DeleteItem(ctx, edge.ID)
	}
	_, err := d.CreateItem(ctx, map[string]any{"followed_id": followedID})
	return err == nil, err
}

func (d *Dispatcher) refreshIfDetached(ctx context.Context) {
	if d.view.Live() {
		return
	}
	if err := d.view.Refresh(ctx); err != nil && !errors.Is(err, ErrViewClosed) {
		d.view.reportError(err)
	}
}

func (d *Dispatcher) wrap(op, id string, err error) error {
	se := cuberrors.CategorizeError(err)
	logger.Warn("Mutation failed", "op", op, "table", d.schema.Table, "id", id, "type", se.Type, "error", err)
	if id == "" {
		return fmt.Errorf("%s %s: %w", op, d.schema.Table, se)
	}
	return fmt.Errorf("%s %s %s: %w", op, d.schema.Table, id, se)
}
