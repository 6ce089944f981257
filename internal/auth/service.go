package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/repository"
	"github.com/BelikanM/cub/internal/util"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

type Service struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	users     repository.UserRepository
}

// NewService creates an auth service issuing HS256 tokens valid for tokenTTL
func NewService(jwtSecret []byte, tokenTTL time.Duration, users repository.UserRepository) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{jwtSecret: jwtSecret, tokenTTL: tokenTTL, users: users}
}

type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Claims carried by access tokens. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Register creates a password account. An account created through
// /users/sync without a password gets this password added.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if len(req.Password) < MinPasswordLength {
		return nil, apperrors.Invalid("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hash := string(hashed)

	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil && existing.PasswordHash != nil:
		return nil, apperrors.Conflict("email").WithDetails("email already used")
	case err == nil:
		return s.addPassword(ctx, existing, hash)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: &hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.Conflict("email").WithDetails("email already used")
		}
		return nil, err
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID))
	return s.GenerateToken(user)
}

func (s *Service) addPassword(ctx context.Context, user *models.User, hash string) (*AuthResponse, error) {
	if err := s.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.PasswordHash = &hash
	logger.Log.Info("Password added to synced user", logger.WithUserID(user.ID))
	return s.GenerateToken(user)
}

// Login checks an email and password
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.GenerateToken(user)
}

// GenerateToken signs an access token for user
func (s *Service) GenerateToken(user *models.User) (*AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// ValidateToken verifies tokenString and loads its user
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	user, err := s.users.GetUser(ctx, claims.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidToken)
	}
	return user, err
}

// Middleware requires a valid bearer token and stores the caller in the
// gin context under util.UserIDKey and util.UserKey
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			util.RespondUnauthorized(c, "missing bearer token")
			return
		}

		user, err := s.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				logger.Log.Error("Token validation failed", zap.Error(err))
			}
			util.RespondUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(util.UserIDKey, user.ID)
		c.Set(util.UserKey, user)
		c.Next()
	}
}
