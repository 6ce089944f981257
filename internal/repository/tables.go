package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/BelikanM/cub/internal/changefeed"
	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/models"
)

type (
	PostTable   = Table[models.Post, *models.Post]
	MediaTable  = Table[models.MediaAsset, *models.MediaAsset]
	FollowTable = Table[models.Follow, *models.Follow]
)

// ErrUserNotFound is returned when a referenced user does not exist
var ErrUserNotFound = fmt.Errorf("user: %w", apperrors.ErrRecordNotFound)

// NewPostTable serves posts. Anyone may change likes; content and image
// belong to the author.
func NewPostTable(db *gorm.DB, feed changefeed.Publisher) *PostTable {
	return newTable(db, Spec[*models.Post]{
		Filterable:   []string{"id", "user_id"},
		OwnerFields:  []string{"content", "image_url"},
		SharedFields: []string{"likes"},
		Build:        buildPost,
		Normalize: func(partial map[string]any) error {
			if err := stringFields(partial, "content", "image_url"); err != nil {
				return err
			}
			if v, ok := partial["likes"]; ok {
				n, err := count("likes", v)
				if err != nil {
					return err
				}
				partial["likes"] = n
			}
			return nil
		},
	}, feed)
}

func buildPost(tx *gorm.DB, callerID string, fields map[string]any) (*models.Post, error) {
	if err := allowFields(fields, "content", "image_url", "user_name", "user_id"); err != nil {
		return nil, err
	}
	if err := checkOwner(fields, "user_id", callerID); err != nil {
		return nil, err
	}
	if err := stringFields(fields, "content", "image_url", "user_name"); err != nil {
		return nil, err
	}

	p := &models.Post{
		UserID:   callerID,
		Content:  strings.TrimSpace(str(fields, "content")),
		ImageURL: strings.TrimSpace(str(fields, "image_url")),
		UserName: str(fields, "user_name"),
	}
	if p.Content == "" && p.ImageURL == "" {
		return nil, apperrors.Invalid("content", "content or image_url is required")
	}
	if p.UserName == "" {
		u, err := findUser(tx, callerID)
		if err != nil {
			return nil, err
		}
		p.UserName = u.DisplayName()
	}
	return p, nil
}

// NewMediaTable serves uploaded file records. Only the description can change.
func NewMediaTable(db *gorm.DB, feed changefeed.Publisher) *MediaTable {
	return newTable(db, Spec[*models.MediaAsset]{
		Filterable:  []string{"id", "user_id"},
		OwnerFields: []string{"description"},
		Build:       buildMedia,
		Normalize: func(partial map[string]any) error {
			return stringFields(partial, "description")
		},
	}, feed)
}

func buildMedia(_ *gorm.DB, callerID string, fields map[string]any) (*models.MediaAsset, error) {
	if err := allowFields(fields, "file_path", "file_name", "description", "file_type", "file_size", "public_url", "user_id"); err != nil {
		return nil, err
	}
	if err := checkOwner(fields, "user_id", callerID); err != nil {
		return nil, err
	}
	if err := stringFields(fields, "file_path", "file_name", "description", "file_type", "public_url"); err != nil {
		return nil, err
	}

	m := &models.MediaAsset{
		UserID:      callerID,
		FilePath:    str(fields, "file_path"),
		FileName:    str(fields, "file_name"),
		Description: str(fields, "description"),
		FileType:    str(fields, "file_type"),
		PublicURL:   str(fields, "public_url"),
	}
	if m.FilePath == "" {
		return nil, apperrors.Invalid("file_path", "file_path is required")
	}
	if m.FileName == "" {
		m.FileName = path.Base(m.FilePath)
	}
	if v, ok := fields["file_size"]; ok && v != nil {
		n, err := count("file_size", v)
		if err != nil {
			return nil, err
		}
		m.FileSize = int64(n)
	}
	return m, nil
}

// NewFollowTable serves follow edges. Edges are immutable.
func NewFollowTable(db *gorm.DB, feed changefeed.Publisher) *FollowTable {
	return newTable(db, Spec[*models.Follow]{
		Filterable: []string{"id", "follower_id", "followed_id"},
		Build:      buildFollow,
	}, feed)
}

func buildFollow(tx *gorm.DB, callerID string, fields map[string]any) (*models.Follow, error) {
	if err := allowFields(fields, "followed_id", "follower_id"); err != nil {
		return nil, err
	}
	if err := checkOwner(fields, "follower_id", callerID); err != nil {
		return nil, err
	}
	if err := stringFields(fields, "followed_id"); err != nil {
		return nil, err
	}

	followed := str(fields, "followed_id")
	switch {
	case followed == "":
		return nil, apperrors.Invalid("followed_id", "followed_id is required")
	case followed == callerID:
		return nil, apperrors.Invalid("followed_id", "you cannot follow yourself")
	}
	if _, err := findUser(tx, followed); err != nil {
		return nil, err
	}
	return &models.Follow{FollowerID: callerID, FollowedID: followed}, nil
}

// FindFollow returns the edge from followerID to followedID
func FindFollow(ctx context.Context, follows *FollowTable, followerID, followedID string) (*models.Follow, error) {
	rows, err := follows.List(ctx, []changefeed.Filter{
		{Column: "follower_id", Value: followerID},
		{Column: "followed_id", Value: followedID},
	}, true, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("follow %s -> %s: %w", followerID, followedID, apperrors.ErrRecordNotFound)
	}
	return &rows[0], nil
}

func findUser(tx *gorm.DB, id string) (*models.User, error) {
	var u models.User
	err := tx.Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &u, err
}

func allowFields(fields map[string]any, allowed ...string) error {
	for k := range fields {
		if !slices.Contains(allowed, k) {
			return apperrors.Invalid(k, "unknown column")
		}
	}
	return nil
}

// checkOwner rejects rows claiming to belong to someone else
func checkOwner(fields map[string]any, column, callerID string) error {
	v, ok := fields[column]
	if !ok || v == nil {
		return nil
	}
	if s, _ := v.(string); s != callerID {
		return apperrors.ErrNotOwner
	}
	return nil
}

func stringFields(fields map[string]any, keys ...string) error {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		if _, ok := v.(string); !ok {
			return apperrors.Invalid(k, "must be a string")
		}
	}
	return nil
}

func str(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// count accepts a non-negative whole JSON number
func count(field string, v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, apperrors.Invalid(field, "must be a number")
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, apperrors.Invalid(field, "must be a non-negative whole number")
	}
	return int(f), nil
}
