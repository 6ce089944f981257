package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/BelikanM/cub/internal/changefeed"
	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/repository"
	"github.com/BelikanM/cub/internal/util"
)

const (
	defaultListLimit = 500
	maxListLimit     = 1000
)

// Query parameters that are not column filters
var reservedParams = map[string]bool{
	"select": true,
	"order":  true,
	"limit":  true,
}

// resource is a repository table with its row type erased
type resource interface {
	list(ctx context.Context, filters []changefeed.Filter, descending bool, limit int) (any, int, error)
	insert(ctx context.Context, callerID string, fields map[string]any) (models.Row, error)
	update(ctx context.Context, callerID, id string, partial map[string]any) (models.Row, error)
	remove(ctx context.Context, callerID, id string) (models.Row, error)
	// scope returns the filters applied when a list request sends none
	scope(callerID string) []changefeed.Filter
}

type tableResource[T any, PT interface {
	*T
	models.Row
}] struct {
	table        *repository.Table[T, PT]
	defaultScope func(callerID string) []changefeed.Filter
}

func newResource[T any, PT interface {
	*T
	models.Row
}](table *repository.Table[T, PT], scope func(string) []changefeed.Filter) resource {
	return &tableResource[T, PT]{table: table, defaultScope: scope}
}

func (r *tableResource[T, PT]) list(ctx context.Context, filters []changefeed.Filter, descending bool, limit int) (any, int, error) {
	rows, err := r.table.List(ctx, filters, descending, limit)
	if err != nil {
		return nil, 0, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, len(rows), nil
}

func (r *tableResource[T, PT]) insert(ctx context.Context, callerID string, fields map[string]any) (models.Row, error) {
	return r.table.Insert(ctx, callerID, fields)
}

func (r *tableResource[T, PT]) update(ctx context.Context, callerID, id string, partial map[string]any) (models.Row, error) {
	return r.table.Update(ctx, callerID, id, partial)
}

func (r *tableResource[T, PT]) remove(ctx context.Context, callerID, id string) (models.Row, error) {
	return r.table.Delete(ctx, callerID, id)
}

func (r *tableResource[T, PT]) scope(callerID string) []changefeed.Filter {
	if r.defaultScope == nil {
		return nil
	}
	return r.defaultScope(callerID)
}

func ownedBy(column string) func(string) []changefeed.Filter {
	return func(callerID string) []changefeed.Filter {
		return []changefeed.Filter{{Column: column, Value: callerID}}
	}
}

// parseListQuery reads column filters, order and limit from the query
// string. Filters may be bare values or "eq.value".
func parseListQuery(c *gin.Context) (filters []changefeed.Filter, descending bool, limit int, err error) {
	for column, values := range c.Request.URL.Query() {
		if reservedParams[column] || len(values) == 0 {
			continue
		}
		value, ok := util.ParseEqFilter(values[0])
		if !ok {
			return nil, false, 0, apperrors.ValidationError(column, "only eq filters are supported")
		}
		filters = append(filters, changefeed.Filter{Column: column, Value: value})
	}

	limit = util.ParseInt(c.Query("limit"), defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return filters, util.ParseOrder(c.Query("order")), limit, nil
}

// bindFields decodes a JSON object body
func bindFields(c *gin.Context) (map[string]any, bool) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			util.RespondBadRequest(c, "request body is required")
		} else {
			util.RespondBadRequest(c, "request body must be a JSON object")
		}
		return nil, false
	}
	return fields, true
}

// bindJSON decodes the body into req, answering 422 with the failing field
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		util.RespondWithAPIError(c, validationFrom(err))
		return false
	}
	return true
}

// validationFrom maps a bind error onto a 422 naming the first bad field
func validationFrom(err error) *apperrors.APIError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return apperrors.ValidationError(field, field+" is required")
		case "email":
			return apperrors.ValidationError(field, "invalid email address")
		case "min":
			return apperrors.ValidationError(field, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		default:
			return apperrors.ValidationError(field, field+" is invalid")
		}
	}
	return apperrors.BadRequest("malformed JSON body")
}
