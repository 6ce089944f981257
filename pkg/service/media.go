package service

import (
	"context"
	"mime"
	"path/filepath"

	"github.com/BelikanM/cub/pkg/auth"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/remote"
)

// MediaService manages the caller's uploaded files
type MediaService struct {
	s *Session
}

// NewMediaService creates a new media service
func NewMediaService(s *Session) *MediaService {
	return &MediaService{s: s}
}

func (ms *MediaService) filter(userID string) remote.Filter {
	if userID == "" {
		userID = ms.s.UserID
	}
	return remote.Eq("user_id", userID)
}

// List prints the media of userID, or of the caller
func (ms *MediaService) List(ctx context.Context, userID string) error {
	v, err := ms.s.OpenView(ctx, remote.TableMedia, ms.filter(userID), nil)
	if err != nil {
		return err
	}
	defer v.Close()
	return ms.s.printItems(remote.TableMedia, v.Items())
}

// Upload stores a file and records it. The REST backend does both in one
// request; the realtime backend uploads the object and inserts the row.
func (ms *MediaService) Upload(ctx context.Context, path, description string) (remote.Item, error) {
	if !ms.s.tableRoutes {
		item, err := ms.s.API.UploadMedia(ctx, path, description)
		return item, auth.HandleSessionError(err)
	}

	obj, err := ms.s.API.UploadObject(ctx, path)
	if err != nil {
		return remote.Item{}, auth.HandleSessionError(err)
	}
	logger.Debug("Object stored", "key", obj.Key, "size", obj.Size)

	v, err := ms.s.OpenView(ctx, remote.TableMedia, ms.filter(""), nil)
	if err != nil {
		return remote.Item{}, err
	}
	defer v.Close()

	fileType := obj.Type
	if fileType == "" {
		fileType = mime.TypeByExtension(filepath.Ext(path))
	}
	item, err := ms.s.Dispatcher(v).CreateItem(ctx, map[string]any{
		"file_path":   obj.Key,
		"file_name":   filepath.Base(path),
		"description": description,
		"file_type":   fileType,
		"file_size":   obj.Size,
		"public_url":  obj.URL,
	})
	return item, auth.HandleSessionError(err)
}

// Describe sets the description of one of the caller's files
func (ms *MediaService) Describe(ctx context.Context, id, description string) error {
	v, err := ms.s.OpenView(ctx, remote.TableMedia, ms.filter(""), nil)
	if err != nil {
		return err
	}
	defer v.Close()
	return auth.HandleSessionError(ms.s.Dispatcher(v).UpdateField(ctx, id, map[string]any{"description": description}))
}

// Delete removes one of the caller's files. The server drops the stored
// object along with the row.
func (ms *MediaService) Delete(ctx context.Context, id string) error {
	v, err := ms.s.OpenView(ctx, remote.TableMedia, ms.filter(""), nil)
	if err != nil {
		return err
	}
	defer v.Close()
	return auth.HandleSessionError(ms.s.Dispatcher(v).DeleteItem(ctx, id))
}

// DownloadURL returns the public URL of a file
func (ms *MediaService) DownloadURL(ctx context.Context, id string) (string, error) {
	u, err := ms.s.API.DownloadURL(ctx, id)
	return u, auth.HandleSessionError(err)
}

// Watch follows the caller's media list until ctx is done
func (ms *MediaService) Watch(ctx context.Context) error {
	return watch(ctx, ms.s, remote.TableMedia, ms.filter(""))
}
