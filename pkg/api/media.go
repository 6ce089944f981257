package api

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/remote"
)

// MaxUploadBytes mirrors the server's multipart limit
const MaxUploadBytes = 50 << 20

func checkUploadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cuberrors.ValidationError("file", "file not found: "+path)
		}
		return err
	}
	if info.IsDir() {
		return cuberrors.ValidationError("file", path+" is a directory")
	}
	if info.Size() > MaxUploadBytes {
		return cuberrors.ValidationError("file", "file exceeds 50 MB")
	}
	return nil
}

// UploadMedia uploads a file and creates its media row in one request
func (c *Client) UploadMedia(ctx context.Context, path, description string) (remote.Item, error) {
	if err := checkUploadFile(path); err != nil {
		return remote.Item{}, err
	}
	logger.Debug("Uploading media", "file", filepath.Base(path))

	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		SetFormData(map[string]string{"description": description}).
		Post("/api/v1/media/upload")
	if err := CheckResponse(resp, err); err != nil {
		return remote.Item{}, err
	}
	return decodeItem(resp, remote.TableMedia)
}

// UploadObject stores a file and returns its key and public URL without
// creating a row. Used by clients that insert the row themselves.
func (c *Client) UploadObject(ctx context.Context, path string) (*UploadResult, error) {
	if err := checkUploadFile(path); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", path).
		Post("/api/v1/storage/upload")
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var res UploadResult
	if err := decode(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DownloadURL resolves the public URL of a media row. The server redirects
// browsers and answers JSON clients with the URL.
func (c *Client) DownloadURL(ctx context.Context, id string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/api/v1/media/" + url.PathEscape(id) + "/download")
	if err := CheckResponse(resp, err); err != nil {
		return "", err
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := decode(resp, &body); err != nil {
		return "", err
	}
	return body.URL, nil
}
