package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BelikanM/cub/internal/changefeed"
	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/models"
)

// ErrInvalidInput is returned for nil or empty arguments
var ErrInvalidInput = errors.New("invalid input")

// Spec describes how a table may be read and written through the API
type Spec[PT models.Row] struct {
	// Filterable lists the columns accepted in eq filters
	Filterable []string
	// OwnerFields may only be changed by the row owner
	OwnerFields []string
	// SharedFields may be changed by any signed in user
	SharedFields []string
	// Build validates fields sent by caller and returns the row to insert
	Build func(tx *gorm.DB, callerID string, fields map[string]any) (PT, error)
	// Normalize validates the values of a partial update and converts them
	// to column types in place
	Normalize func(partial map[string]any) error
}

// Table is the repository for one model. Every successful write is
// published to the change feed after it commits.
type Table[T any, PT interface {
	*T
	models.Row
}] struct {
	db   *gorm.DB
	spec Spec[PT]
	feed changefeed.Publisher
}

func newTable[T any, PT interface {
	*T
	models.Row
}](db *gorm.DB, spec Spec[PT], feed changefeed.Publisher) *Table[T, PT] {
	return &Table[T, PT]{db: db, spec: spec, feed: feed}
}

// Name returns the table name
func (t *Table[T, PT]) Name() string {
	return PT(new(T)).TableName()
}

// CanFilter reports whether column is accepted in eq filters
func (t *Table[T, PT]) CanFilter(column string) bool {
	return slices.Contains(t.spec.Filterable, column)
}

// List returns rows matching every filter ordered by creation time, ties
// broken by id. limit <= 0 means no limit.
func (t *Table[T, PT]) List(ctx context.Context, filters []changefeed.Filter, descending bool, limit int) ([]T, error) {
	q := t.db.WithContext(ctx)
	for _, f := range filters {
		if !t.CanFilter(f.Column) {
			return nil, apperrors.Invalid(f.Column, "column cannot be filtered")
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: f.Column}, Value: f.Value})
	}
	if descending {
		q = q.Order("created_at DESC").Order("id DESC")
	} else {
		q = q.Order("created_at ASC").Order("id ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns one row by id
func (t *Table[T, PT]) Get(ctx context.Context, id string) (PT, error) {
	return t.get(t.db.WithContext(ctx), id)
}

func (t *Table[T, PT]) get(tx *gorm.DB, id string) (PT, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	row := PT(new(T))
	err := tx.Where("id = ?", id).First(row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %s: %w", t.Name(), id, apperrors.ErrRecordNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Insert validates fields, stores the row owned by callerID and returns it
func (t *Table[T, PT]) Insert(ctx context.Context, callerID string, fields map[string]any) (PT, error) {
	var row PT
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if row, err = t.spec.Build(tx, callerID, fields); err != nil {
			return err
		}
		return translate(tx.Create(row).Error)
	})
	if err != nil {
		return nil, err
	}

	t.publish(ctx, changefeed.Insert, row, nil)
	return row, nil
}

// Create stores a row that was built by the caller, skipping validation
func (t *Table[T, PT]) Create(ctx context.Context, row PT) error {
	if err := translate(t.db.WithContext(ctx).Create(row).Error); err != nil {
		return err
	}
	t.publish(ctx, changefeed.Insert, row, nil)
	return nil
}

// Update applies partial to row id. Owner fields require callerID to own
// the row; shared fields do not.
func (t *Table[T, PT]) Update(ctx context.Context, callerID, id string, partial map[string]any) (PT, error) {
	if len(partial) == 0 {
		return nil, apperrors.Invalid("body", "no fields to update")
	}
	ownerOnly := false
	for k := range partial {
		switch {
		case slices.Contains(t.spec.SharedFields, k):
		case slices.Contains(t.spec.OwnerFields, k):
			ownerOnly = true
		default:
			return nil, apperrors.Invalid(k, "field cannot be updated")
		}
	}
	if t.spec.Normalize != nil {
		if err := t.spec.Normalize(partial); err != nil {
			return nil, err
		}
	}

	var before, after PT
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if before, err = t.get(tx, id); err != nil {
			return err
		}
		if ownerOnly && before.OwnerID() != callerID {
			return apperrors.ErrNotOwner
		}
		if err := tx.Model(PT(new(T))).Where("id = ?", id).Updates(partial).Error; err != nil {
			return translate(err)
		}
		after, err = t.get(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.publish(ctx, changefeed.Update, after, before)
	return after, nil
}

// Delete removes row id if callerID owns it and returns the removed row
func (t *Table[T, PT]) Delete(ctx context.Context, callerID, id string) (PT, error) {
	var row PT
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if row, err = t.get(tx, id); err != nil {
			return err
		}
		if row.OwnerID() != callerID {
			return apperrors.ErrNotOwner
		}
		return tx.Delete(row).Error
	})
	if err != nil {
		return nil, err
	}

	t.publish(ctx, changefeed.Delete, nil, row)
	return row, nil
}

func (t *Table[T, PT]) publish(ctx context.Context, ev changefeed.Event, newRow, oldRow PT) {
	if t.feed == nil {
		return
	}
	c := changefeed.Change{Table: t.Name(), Event: ev}
	var err error
	if newRow != nil {
		if c.New, err = changefeed.ToRow(newRow); err != nil {
			logger.Log.Error("Encoding change failed", logger.WithTable(c.Table), zap.Error(err))
			return
		}
	}
	if oldRow != nil {
		if c.Old, err = changefeed.ToRow(oldRow); err != nil {
			logger.Log.Error("Encoding change failed", logger.WithTable(c.Table), zap.Error(err))
			return
		}
	}
	t.feed.Publish(ctx, c)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", apperrors.ErrDuplicate, err)
	}
	return err
}
