package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table names exposed through the table surface and the realtime channel
const (
	TablePosts   = "posts"
	TableMedia   = "media"
	TableFollows = "follows"
)

// Row is implemented by every model served through the generic table routes
type Row interface {
	TableName() string
	RowID() string
	OwnerID() string
}

// User is an account. Users created through /users/sync have no password.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"not null;default:''" json:"name"`
	Bio          string    `gorm:"type:text" json:"bio"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash *string   `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName falls back to the local part of the email
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	name, _, _ := strings.Cut(u.Email, "@")
	return name
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
