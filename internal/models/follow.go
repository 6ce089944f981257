package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow is a directed edge from FollowerID to FollowedID
type Follow struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	FollowerID string    `gorm:"size:36;not null;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowedID string    `gorm:"size:36;not null;uniqueIndex:idx_follows_pair;index" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string { return TableFollows }
func (f *Follow) RowID() string { return f.ID }
func (f *Follow) OwnerID() string { return f.FollowerID }

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}
