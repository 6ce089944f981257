package handlers

import (
	"gorm.io/gorm"

	"github.com/BelikanM/cub/internal/auth"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/repository"
	"github.com/BelikanM/cub/internal/storage"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db        *gorm.DB
	repos     *repository.Repositories
	auth      auth.AuthServiceInterface
	store     storage.ObjectStore
	resources map[string]resource
}

// NewHandlers creates a new handlers instance
func NewHandlers(db *gorm.DB, repos *repository.Repositories, authService auth.AuthServiceInterface, store storage.ObjectStore) *Handlers {
	return &Handlers{
		db:    db,
		repos: repos,
		auth:  authService,
		store: store,
		resources: map[string]resource{
			models.TablePosts:   newResource(repos.Posts, nil),
			models.TableMedia:   newResource(repos.Media, ownedBy("user_id")),
			models.TableFollows: newResource(repos.Follows, ownedBy("follower_id")),
		},
	}
}
