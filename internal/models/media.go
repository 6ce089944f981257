package models

import (
	"time"

	"gorm.io/gorm"
)

// MediaAsset is an uploaded file. FilePath is the object storage key.
type MediaAsset struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;index" json:"user_id"`
	FilePath    string    `gorm:"not null" json:"file_path"`
	FileName    string    `json:"file_name"`
	Description string    `gorm:"type:text" json:"description"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	PublicURL   string    `json:"public_url"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (MediaAsset) TableName() string { return TableMedia }
func (m *MediaAsset) RowID() string { return m.ID }
func (m *MediaAsset) OwnerID() string { return m.UserID }

func (m *MediaAsset) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}
