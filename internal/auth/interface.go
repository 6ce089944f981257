package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/BelikanM/cub/internal/models"
)

// AuthServiceInterface defines the contract for authentication operations
type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GenerateToken(user *models.User) (*AuthResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*models.User, error)
	Middleware() gin.HandlerFunc
}

var _ AuthServiceInterface = (*Service)(nil)
