package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/repository"
	"github.com/BelikanM/cub/internal/util"
)

// Two surfaces share the row logic below. Resource routes (/posts, /media,
// /follows) wrap lists as {"items","count"}; table routes (/rest/:table)
// answer with bare rows and 204 deletes.

// ListResource lists rows of table
// GET /api/v1/{table}?col=value&order=asc|desc
func (h *Handlers) ListResource(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, count, ok := h.listRows(c, table)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": rows, "count": count})
	}
}

// CreateResource inserts a row into table
// POST /api/v1/{table}
func (h *Handlers) CreateResource(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := h.insertRow(c, table)
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, row)
	}
}

// UpdateResource applies a partial update to one row of table
// PATCH /api/v1/{table}/:id
func (h *Handlers) UpdateResource(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		row, ok := h.updateRow(c, table, c.Param("id"))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

// DeleteResource removes one row of table
// DELETE /api/v1/{table}/:id
func (h *Handlers) DeleteResource(table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.deleteRow(c, table, c.Param("id")) {
			c.Status(http.StatusNoContent)
		}
	}
}

// ListTable lists rows of :table
// GET /api/v1/rest/:table?select=*&col=eq.value&order=created_at.desc
func (h *Handlers) ListTable(c *gin.Context) {
	rows, _, ok := h.listRows(c, c.Param("table"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rows)
}

// InsertTableRow inserts into :table. The row is returned unless the
// client sends Prefer: return=minimal.
// POST /api/v1/rest/:table
func (h *Handlers) InsertTableRow(c *gin.Context) {
	row, ok := h.insertRow(c, c.Param("table"))
	if !ok {
		return
	}
	if strings.Contains(c.GetHeader("Prefer"), "return=minimal") {
		c.Status(http.StatusCreated)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// UpdateTableRow applies a partial update to one row of :table
// PATCH /api/v1/rest/:table/:id
func (h *Handlers) UpdateTableRow(c *gin.Context) {
	row, ok := h.updateRow(c, c.Param("table"), c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteTableRow removes one row of :table
// DELETE /api/v1/rest/:table/:id
func (h *Handlers) DeleteTableRow(c *gin.Context) {
	if h.deleteRow(c, c.Param("table"), c.Param("id")) {
		c.Status(http.StatusNoContent)
	}
}

func (h *Handlers) resourceFor(c *gin.Context, table string) (resource, bool) {
	res, ok := h.resources[table]
	if !ok {
		util.RespondNotFound(c, "table "+table)
		return nil, false
	}
	return res, true
}

func (h *Handlers) listRows(c *gin.Context, table string) (any, int, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, 0, false
	}
	res, ok := h.resourceFor(c, table)
	if !ok {
		return nil, 0, false
	}

	filters, descending, limit, err := parseListQuery(c)
	if err != nil {
		util.RespondError(c, err)
		return nil, 0, false
	}
	if len(filters) == 0 {
		filters = res.scope(userID)
	}

	rows, count, err := res.list(c.Request.Context(), filters, descending, limit)
	if err != nil {
		util.RespondError(c, err)
		return nil, 0, false
	}
	return rows, count, true
}

func (h *Handlers) insertRow(c *gin.Context, table string) (models.Row, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}
	res, ok := h.resourceFor(c, table)
	if !ok {
		return nil, false
	}
	fields, ok := bindFields(c)
	if !ok {
		return nil, false
	}

	row, err := res.insert(c.Request.Context(), userID, fields)
	if err != nil {
		util.RespondError(c, err)
		return nil, false
	}

	logger.Log.Debug("Row inserted",
		logger.WithUserID(userID),
		logger.WithTable(table),
		logger.WithItemID(row.RowID()))
	return row, true
}

func (h *Handlers) updateRow(c *gin.Context, table, id string) (models.Row, bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return nil, false
	}
	res, ok := h.resourceFor(c, table)
	if !ok {
		return nil, false
	}
	partial, ok := bindFields(c)
	if !ok {
		return nil, false
	}

	row, err := res.update(c.Request.Context(), userID, id, partial)
	if err != nil {
		util.RespondError(c, err)
		return nil, false
	}
	return row, true
}

// deleteRow removes a row and what hangs off it. A follow can also be
// addressed by the followed user's id.
func (h *Handlers) deleteRow(c *gin.Context, table, id string) bool {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return false
	}
	res, ok := h.resourceFor(c, table)
	if !ok {
		return false
	}

	ctx := c.Request.Context()
	row, err := res.remove(ctx, userID, id)
	if errors.Is(err, apperrors.ErrRecordNotFound) && table == models.TableFollows {
		var edge *models.Follow
		if edge, err = repository.FindFollow(ctx, h.repos.Follows, userID, id); err == nil {
			row, err = res.remove(ctx, userID, edge.ID)
		}
	}
	if err != nil {
		util.RespondError(c, err)
		return false
	}

	if media, ok := row.(*models.MediaAsset); ok {
		h.deleteObject(c, media)
	}

	logger.Log.Debug("Row deleted",
		logger.WithUserID(userID),
		logger.WithTable(table),
		logger.WithItemID(row.RowID()))
	return true
}

// deleteObject drops the stored file of a deleted media row. The row is
// already gone, so failures are only logged.
func (h *Handlers) deleteObject(c *gin.Context, media *models.MediaAsset) {
	if h.store == nil || media.FilePath == "" {
		return
	}
	if err := h.store.Delete(c.Request.Context(), media.FilePath); err != nil {
		logger.Log.Warn("Failed to delete stored object",
			logger.WithItemID(media.ID),
			zap.String("key", media.FilePath),
			zap.Error(err))
	}
}
