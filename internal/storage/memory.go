package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// MemoryStore keeps objects in memory. Used when no bucket is configured
// and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	baseURL string
}

// NewMemoryStore creates an empty store whose URLs start with baseURL
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), baseURL: baseURL}
}

func (m *MemoryStore) Upload(_ context.Context, body io.Reader, _ int64, userID, filename, contentType string) (*UploadResult, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = getContentType(filepath.Ext(filename))
	}

	key := objectKey(userID, filename)
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()

	return &UploadResult{Key: key, URL: m.PublicURL(key), Size: n, ContentType: contentType}, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return strings.TrimSuffix(m.baseURL, "/") + "/" + key
}

// Object returns a stored object and whether it exists
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}
