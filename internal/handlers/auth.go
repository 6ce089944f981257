package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/auth"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/util"
)

// Register creates a password account and signs it in
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	logger.Log.Info("User registered", logger.WithUserID(resp.User.ID))
	c.JSON(http.StatusCreated, resp)
}

// Login exchanges email and password for a token
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		logger.Log.Debug("Login rejected", zap.String("email", req.Email))
		util.RespondUnauthorized(c, "invalid email or password")
		return
	}
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the signed in user
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func currentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(util.UserKey)
	if !ok {
		util.RespondUnauthorized(c)
		return nil, false
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.RespondUnauthorized(c)
		return nil, false
	}
	return user, true
}
