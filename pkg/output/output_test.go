package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BelikanM/cub/pkg/remote"
)

func init() {
	color.NoColor = true
}

func samplePosts() []remote.Item {
	return []remote.Item{
		{
			ID:        "p-2",
			OwnerID:   "u-1",
			CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Fields:    map[string]any{"content": "second", "likes": float64(3), "user_name": "ada"},
		},
		{
			ID:        "p-1",
			OwnerID:   "u-1",
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Fields:    map[string]any{"content": "first", "likes": float64(0), "user_name": "ada"},
		},
	}
}

func TestValidateOutputFormat(t *testing.T) {
	assert.True(t, ValidateOutputFormat("json"))
	assert.True(t, ValidateOutputFormat("table"))
	assert.True(t, ValidateOutputFormat("text"))
	assert.False(t, ValidateOutputFormat("yaml"))
}

func TestWriteItems_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, FormatJSON, remote.TablePosts, samplePosts()))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "p-2", decoded[0]["id"])
	assert.Equal(t, "u-1", decoded[0]["owner_id"])
}

func TestWriteItems_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, FormatTable, remote.TablePosts, samplePosts()))

	out := buf.String()
	assert.Contains(t, out, "USER_NAME")
	assert.Contains(t, out, "CONTENT")
	assert.Contains(t, out, "second")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("second")), bytes.Index(buf.Bytes(), []byte("first")))
}

func TestWriteItems_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, FormatText, remote.TableMedia, nil))
	assert.Equal(t, "No media yet.\n", buf.String())
}

func TestWriteItems_TextMedia(t *testing.T) {
	var buf bytes.Buffer
	items := []remote.Item{{
		ID:     "m-1",
		Fields: map[string]any{"file_name": "cat.png", "file_type": "image/png", "file_size": float64(2048), "description": "a cat"},
	}}
	require.NoError(t, WriteItems(&buf, FormatText, remote.TableMedia, items))

	out := buf.String()
	assert.Contains(t, out, "cat.png")
	assert.Contains(t, out, "2.0 KB")
	assert.Contains(t, out, "a cat")
}

func TestWriteRecord_SortedKeys(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, FormatText, "Profile", map[string]any{"name": "Ada", "email": "ada@example.com"}))

	out := buf.String()
	assert.Less(t, bytes.Index([]byte(out), []byte("email")), bytes.Index([]byte(out), []byte("name")))
}

func TestCell(t *testing.T) {
	assert.Equal(t, "-", cell(nil))
	assert.Equal(t, "12", cell(float64(12)))
	assert.Equal(t, 40, len(cell("0123456789012345678901234567890123456789-extra")))
}

func TestFormatAsJSON(t *testing.T) {
	s, err := FormatAsJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, s)
}
