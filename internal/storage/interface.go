package storage

import (
	"context"
	"io"
)

// ObjectStore stores uploaded media files
type ObjectStore interface {
	Upload(ctx context.Context, body io.Reader, size int64, userID, filename, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

var (
	_ ObjectStore = (*S3Uploader)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)
