package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"github.com/BelikanM/cub/internal/database"
	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/models"
	"github.com/BelikanM/cub/internal/repository"
	"github.com/BelikanM/cub/internal/util"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	users       repository.UserRepository
	authService *Service
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := database.Open("sqlite", "file::memory:", false)
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(db))
	suite.T().Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	suite.ctx = context.Background()
	suite.users = repository.NewUserRepository(db)
	suite.authService = NewService([]byte("test_jwt_secret_key"), time.Hour, suite.users)
}

func (suite *AuthServiceTestSuite) register(email string) *AuthResponse {
	resp, err := suite.authService.Register(suite.ctx, RegisterRequest{Name: "Test", Email: email, Password: "secret123"})
	suite.Require().NoError(err)
	return resp
}

func (suite *AuthServiceTestSuite) TestRegisterAndLogin() {
	resp := suite.register("User@Example.com")
	suite.NotEmpty(resp.Token)
	suite.Equal("user@example.com", resp.User.Email)
	suite.WithinDuration(time.Now().Add(time.Hour), resp.ExpiresAt, 5*time.Second)

	login, err := suite.authService.Login(suite.ctx, LoginRequest{Email: "user@example.com", Password: "secret123"})
	suite.Require().NoError(err)
	suite.Equal(resp.User.ID, login.User.ID)

	_, err = suite.authService.Login(suite.ctx, LoginRequest{Email: "user@example.com", Password: "wrong"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.authService.Login(suite.ctx, LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestRegisterRejects() {
	_, err := suite.authService.Register(suite.ctx, RegisterRequest{Email: "a@b.io", Password: "123"})
	var fe *apperrors.FieldError
	suite.ErrorAs(err, &fe)
	suite.Equal("password", fe.Field)

	suite.register("dup@example.com")
	_, err = suite.authService.Register(suite.ctx, RegisterRequest{Email: "dup@example.com", Password: "secret123"})
	apiErr := apperrors.From(err)
	suite.Equal(apperrors.CodeConflict, apiErr.Code)
}

func (suite *AuthServiceTestSuite) TestRegisterAddsPasswordToSyncedUser() {
	_, err := suite.users.UpsertUser(suite.ctx, &models.User{ID: "ext-1", Email: "synced@example.com"})
	suite.Require().NoError(err)

	_, err = suite.authService.Login(suite.ctx, LoginRequest{Email: "synced@example.com", Password: "secret123"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	resp := suite.register("synced@example.com")
	suite.Equal("ext-1", resp.User.ID)

	_, err = suite.authService.Login(suite.ctx, LoginRequest{Email: "synced@example.com", Password: "secret123"})
	suite.NoError(err)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	resp := suite.register("tok@example.com")

	user, err := suite.authService.ValidateToken(suite.ctx, resp.Token)
	suite.Require().NoError(err)
	suite.Equal(resp.User.ID, user.ID)

	_, err = suite.authService.ValidateToken(suite.ctx, "garbage")
	suite.ErrorIs(err, ErrInvalidToken)

	other := NewService([]byte("another_secret"), time.Hour, suite.users)
	_, err = other.ValidateToken(suite.ctx, resp.Token)
	suite.ErrorIs(err, ErrInvalidToken)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   resp.User.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test_jwt_secret_key"))
	suite.Require().NoError(err)
	_, err = suite.authService.ValidateToken(suite.ctx, expired)
	suite.ErrorIs(err, ErrInvalidToken)

	ghost, err := suite.authService.GenerateToken(&models.User{ID: "ghost"})
	suite.Require().NoError(err)
	_, err = suite.authService.ValidateToken(suite.ctx, ghost.Token)
	suite.ErrorIs(err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestMiddleware() {
	gin.SetMode(gin.TestMode)
	resp := suite.register("mw@example.com")

	r := gin.New()
	r.GET("/me", suite.authService.Middleware(), func(c *gin.Context) {
		id, _ := util.GetUserIDFromContext(c)
		c.String(http.StatusOK, id)
	})

	cases := map[string]int{
		"":                     http.StatusUnauthorized,
		"Token " + resp.Token:  http.StatusUnauthorized,
		"Bearer not-a-jwt":     http.StatusUnauthorized,
		"Bearer " + resp.Token: http.StatusOK,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		suite.Equal(want, w.Code, header)
		if want == http.StatusOK {
			suite.Equal(resp.User.ID, w.Body.String())
		}
	}
}
