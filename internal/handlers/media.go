package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/metrics"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/storage"
	"github.com/BelikanM/cub/internal/telemetry"
	"github.com/BelikanM/cub/internal/util"
)

// MaxUploadSize is the largest file accepted by the upload endpoints
const MaxUploadSize = 50 << 20

// UploadMedia stores a file and records it as one of the caller's media rows
// POST /api/v1/media/upload (multipart: file, description)
func (h *Handlers) UploadMedia(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	header, ok := formFile(c)
	if !ok {
		return
	}
	obj, ok := h.storeFile(c, userID, header)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	row, err := h.repos.Media.Insert(ctx, userID, map[string]any{
		"file_path":   obj.Key,
		"file_name":   header.Filename,
		"description": strings.TrimSpace(c.PostForm("description")),
		"file_type":   obj.ContentType,
		"file_size":   obj.Size,
		"public_url":  obj.URL,
	})
	if err != nil {
		// Don't leave an object nothing points at
		if delErr := h.store.Delete(ctx, obj.Key); delErr != nil {
			logger.Log.Warn("Failed to remove orphaned object", zap.String("key", obj.Key), zap.Error(delErr))
		}
		util.RespondError(c, err)
		return
	}

	logger.Log.Info("Media uploaded",
		logger.WithUserID(userID),
		logger.WithItemID(row.ID),
		zap.Int64("size", obj.Size))
	c.JSON(http.StatusCreated, row)
}

// UploadObject stores a file without recording a row
// POST /api/v1/storage/upload (multipart: file)
func (h *Handlers) UploadObject(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	header, ok := formFile(c)
	if !ok {
		return
	}
	obj, ok := h.storeFile(c, userID, header)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, obj)
}

// DownloadMedia redirects to the public URL of a media row. Clients that
// accept JSON get {"url": ...} instead.
// GET /api/v1/media/:id/download
func (h *Handlers) DownloadMedia(c *gin.Context) {
	if _, ok := util.GetUserIDFromContext(c); !ok {
		return
	}

	media, err := h.repos.Media.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	url := mediaURL(h.store, media)
	if url == "" {
		util.RespondNotFound(c, "file")
		return
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		c.JSON(http.StatusOK, gin.H{"url": url})
		return
	}
	c.Redirect(http.StatusFound, url)
}

func mediaURL(store storage.ObjectStore, m *models.MediaAsset) string {
	if m.PublicURL != "" {
		return m.PublicURL
	}
	if store != nil && m.FilePath != "" {
		return store.PublicURL(m.FilePath)
	}
	return ""
}

func formFile(c *gin.Context) (*multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			util.RespondWithAPIError(c, apperrors.ValidationError("file", "file exceeds 50MB"))
			return nil, false
		}
		util.RespondValidationError(c, "file", "file is required")
		return nil, false
	}
	if header.Size > MaxUploadSize {
		util.RespondValidationError(c, "file", "file exceeds 50MB")
		return nil, false
	}
	if err := util.ValidateFilename(header.Filename); err != nil {
		util.RespondValidationError(c, "file", err.Error())
		return nil, false
	}
	return header, true
}

func (h *Handlers) storeFile(c *gin.Context, userID string, header *multipart.FileHeader) (*storage.UploadResult, bool) {
	if h.store == nil {
		util.RespondWithAPIError(c, apperrors.ServiceUnavailable("storage"))
		return nil, false
	}

	src, err := header.Open()
	if err != nil {
		util.RespondError(c, err)
		return nil, false
	}
	defer src.Close()

	ctx, span := telemetry.TraceStorageCall(c.Request.Context(), "put_object", "", header.Size)
	defer span.End()

	obj, err := h.store.Upload(ctx, src, header.Size, userID, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		telemetry.RecordServiceError(span, err)
		logger.Log.Error("Upload failed", logger.WithUserID(userID), zap.Error(err))
		util.RespondWithAPIError(c, apperrors.ServiceUnavailable("storage"))
		return nil, false
	}

	metrics.Get().UploadBytesTotal.Add(float64(obj.Size))
	return obj, true
}
