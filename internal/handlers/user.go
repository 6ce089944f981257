package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/repository"
	"github.com/BelikanM/cub/internal/util"
)

const userSearchLimit = 100

// GetProfile returns the caller's profile
// GET /api/v1/profile
func (h *Handlers) GetProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.repos.Users.GetUser(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the fields present in the body
// PUT /api/v1/profile
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var update repository.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		util.RespondBadRequest(c, "request body must be a JSON object")
		return
	}
	if update.IsEmpty() {
		util.RespondValidationError(c, "profile", "nothing to update")
		return
	}
	if update.Email != nil && !validEmail(*update.Email) {
		util.RespondValidationError(c, "email", "invalid email address")
		return
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		util.RespondValidationError(c, "name", "name cannot be empty")
		return
	}

	user, err := h.repos.Users.UpdateProfile(c.Request.Context(), userID, update)
	if errors.Is(err, apperrors.ErrDuplicate) {
		util.RespondWithAPIError(c, apperrors.Conflict("email").WithDetails("email already used"))
		return
	}
	if err != nil {
		util.RespondError(c, err)
		return
	}

	logger.Log.Info("Profile updated", logger.WithUserID(userID))
	c.JSON(http.StatusOK, user)
}

// ListUsers lists everyone but the caller, filtered by ?q= on name or email
// GET /api/v1/users
func (h *Handlers) ListUsers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	limit := util.ParseInt(c.Query("limit"), userSearchLimit)
	if limit <= 0 || limit > userSearchLimit {
		limit = userSearchLimit
	}

	users, err := h.repos.Users.SearchUsers(c.Request.Context(), c.Query("q"), userID, limit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SyncUserRequest describes an identity issued by an external provider
type SyncUserRequest struct {
	ID        string `json:"id" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// SyncUser creates or refreshes an externally authenticated user. The
// caller may refresh itself or create a user that does not exist yet.
// POST /api/v1/users/sync
func (h *Handlers) SyncUser(c *gin.Context) {
	callerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req SyncUserRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	existing, err := h.repos.Users.GetUser(ctx, req.ID)
	switch {
	case err == nil && existing.ID != callerID:
		util.RespondWithAPIError(c, apperrors.Forbidden("cannot sync another existing user"))
		return
	case err != nil && !errors.Is(err, apperrors.ErrRecordNotFound):
		util.RespondError(c, err)
		return
	}

	user, err := h.repos.Users.UpsertUser(ctx, &models.User{
		ID:        req.ID,
		Email:     req.Email,
		Name:      strings.TrimSpace(req.FullName),
		AvatarURL: req.AvatarURL,
	})
	if errors.Is(err, apperrors.ErrDuplicate) {
		util.RespondWithAPIError(c, apperrors.Conflict("email").WithDetails("email already used"))
		return
	}
	if err != nil {
		util.RespondError(c, err)
		return
	}

	logger.Log.Info("User synced", logger.WithUserID(user.ID))
	c.JSON(http.StatusOK, user)
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(strings.TrimSpace(email), "required,email") == nil
}
