package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Alice", (&User{Name: "Alice", Email: "a@x.io"}).DisplayName())
	assert.Equal(t, "bob", (&User{Email: "bob@x.io"}).DisplayName())
}

func TestBeforeCreateAssignsID(t *testing.T) {
	u := &User{Email: "  Bob@Example.COM "}
	p := &Post{ID: "keep"}
	f := &Follow{}

	assert.NoError(t, u.BeforeCreate(nil))
	assert.NoError(t, p.BeforeCreate(nil))
	assert.NoError(t, f.BeforeCreate(nil))

	assert.Len(t, u.ID, 36)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.Equal(t, "keep", p.ID)
	assert.NotEmpty(t, f.ID)
}

func TestRowsReportTheirTable(t *testing.T) {
	rows := map[string]Row{
		TablePosts:   &Post{ID: "p", UserID: "u"},
		TableMedia:   &MediaAsset{ID: "m", UserID: "u"},
		TableFollows: &Follow{ID: "f", FollowerID: "u"},
	}
	for table, r := range rows {
		assert.Equal(t, table, r.TableName())
		assert.Equal(t, "u", r.OwnerID())
	}
}
