package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/BelikanM/cub/internal/models"
)

// ProfileUpdate holds the profile fields to change; nil fields are kept
type ProfileUpdate struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// IsEmpty reports whether the update changes nothing
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Bio == nil && u.AvatarURL == nil
}

// UserRepository handles all database operations for users
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error)
	SetPasswordHash(ctx context.Context, userID, hash string) error
	// UpsertUser creates or refreshes a user issued by an external identity provider
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	// SearchUsers lists users other than excludeID whose name or email contains query
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]*models.User, error)
	GetTotalUserCount(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return findUser(r.db.WithContext(ctx), userID)
}

// GetUserByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.User, error) {
	if update.IsEmpty() {
		return nil, ErrInvalidInput
	}

	changes := map[string]any{}
	if update.Name != nil {
		changes["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		changes["email"] = strings.ToLower(strings.TrimSpace(*update.Email))
	}
	if update.Bio != nil {
		changes["bio"] = *update.Bio
	}
	if update.AvatarURL != nil {
		changes["avatar_url"] = *update.AvatarURL
	}

	var user *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = findUser(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(user).Updates(changes).Error; err != nil {
			return translate(err)
		}
		user, err = findUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) SetPasswordHash(ctx context.Context, userID, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpsertUser(ctx context.Context, in *models.User) (*models.User, error) {
	if in == nil || in.ID == "" || in.Email == "" {
		return nil, ErrInvalidInput
	}

	var user *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findUser(tx, in.ID)
		switch {
		case errors.Is(err, ErrUserNotFound):
			if err := translate(tx.Create(in).Error); err != nil {
				return err
			}
			user = in
			return nil
		case err != nil:
			return err
		}

		changes := map[string]any{"email": strings.ToLower(strings.TrimSpace(in.Email))}
		if in.Name != "" {
			changes["name"] = in.Name
		}
		if in.AvatarURL != "" {
			changes["avatar_url"] = in.AvatarURL
		}
		if err := tx.Model(existing).Updates(changes).Error; err != nil {
			return translate(err)
		}
		user, err = findUser(tx, in.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]*models.User, error) {
	var users []*models.User

	q := r.db.WithContext(ctx).Where("id <> ?", excludeID)
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("name ASC").Find(&users).Error

	return users, err
}

func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Count(&count).Error

	return count, err
}
