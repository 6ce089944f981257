package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContentType(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".jpg", "image/jpeg"},
		{".JPEG", "image/jpeg"},
		{".png", "image/png"},
		{".webp", "image/webp"},
		{".mp4", "video/mp4"},
		{".mp3", "audio/mpeg"},
		{".pdf", "application/pdf"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.expected, getContentType(tt.extension))
		})
	}
}

func TestObjectKey(t *testing.T) {
	key := objectKey("u1", "../My Photo.png")

	assert.True(t, strings.HasPrefix(key, "media/u1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotContains(t, key, "..")
	assert.NotEqual(t, key, objectKey("u1", "../My Photo.png"))
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore("http://cdn.test/")
	ctx := context.Background()

	res, err := m.Upload(ctx, strings.NewReader("hello"), 5, "u1", "note.txt", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Size)
	assert.Equal(t, "text/plain", res.ContentType)
	assert.Equal(t, "http://cdn.test/"+res.Key, res.URL)

	data, ok := m.Object(res.Key)
	require.True(t, ok)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, m.Delete(ctx, res.Key))
	_, ok = m.Object(res.Key)
	assert.False(t, ok)
}

func TestS3PublicURL(t *testing.T) {
	u := &S3Uploader{bucket: "b", region: "r", baseURL: "https://cdn.example.com/"}
	assert.Equal(t, "https://cdn.example.com/media/x.png", u.PublicURL("media/x.png"))
}
