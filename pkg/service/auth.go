package service

import (
	"context"
	"fmt"

	"github.com/BelikanM/cub/pkg/api"
	"github.com/BelikanM/cub/pkg/auth"
	"github.com/BelikanM/cub/pkg/client"
	"github.com/BelikanM/cub/pkg/credentials"
	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/output"
	"github.com/BelikanM/cub/pkg/prompter"
)

// AuthService handles account commands
type AuthService struct {
	prompt *prompter.Prompter
}

// NewAuthService creates a new auth service reading answers from p
func NewAuthService(p *prompter.Prompter) *AuthService {
	return &AuthService{prompt: p}
}

// Register creates an account and stores the returned session
func (s *AuthService) Register(ctx context.Context) error {
	name, err := s.prompt.String("Name: ")
	if err != nil {
		return err
	}
	email, err := s.prompt.String("Email: ")
	if err != nil {
		return err
	}
	password, err := s.prompt.Password("Password: ")
	if err != nil {
		return err
	}
	if email == "" || password == "" {
		return cuberrors.ValidationError("email", "email and password are required")
	}
	if len(password) < 6 {
		return cuberrors.ValidationError("password", "must be at least 6 characters")
	}

	client.Init()
	output.PrintInfo("Creating account...")
	resp, err := api.New(client.GetClient()).Register(ctx, api.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}
	return s.store(resp)
}

// Login authenticates with email and password
func (s *AuthService) Login(ctx context.Context) error {
	creds, err := credentials.Load()
	if err != nil {
		logger.Error("Failed to load credentials", "error", err)
		return err
	}
	if creds != nil && creds.IsValid() {
		output.PrintWarning("Already logged in as %s", creds.Email)
		ok, err := s.prompt.Confirm("Continue with new login?")
		if err != nil || !ok {
			return err
		}
	}

	email, err := s.prompt.String("Email: ")
	if err != nil {
		return err
	}
	if email == "" {
		return cuberrors.ValidationError("email", "cannot be empty")
	}
	password, err := s.prompt.Password("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return cuberrors.ValidationError("password", "cannot be empty")
	}

	client.Init()
	output.PrintInfo("Authenticating...")
	resp, err := api.New(client.GetClient()).Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.store(resp)
}

func (s *AuthService) store(resp *api.AuthResponse) error {
	creds := &credentials.Credentials{
		AccessToken: resp.Token,
		ExpiresAt:   resp.ExpiresAt,
		UserID:      resp.User.ID,
		Name:        resp.User.Name,
		Email:       resp.User.Email,
	}
	if err := credentials.Save(creds); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	client.SetAuthToken(resp.Token)
	output.PrintSuccess("Logged in as %s", resp.User.Email)
	return nil
}

// Logout removes the stored session
func (s *AuthService) Logout() error {
	creds, err := credentials.Load()
	if err != nil {
		return err
	}
	if creds == nil {
		output.PrintWarning("Not logged in")
		return nil
	}
	if err := credentials.Delete(); err != nil {
		return err
	}
	client.ClearAuthToken()
	output.PrintSuccess("Logged out")
	return nil
}

// Me prints the user behind the stored token
func (s *AuthService) Me(ctx context.Context) error {
	sess, err := OpenSession(ctx, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	u, err := sess.API.Me(ctx)
	if err != nil {
		return auth.HandleSessionError(err)
	}
	return sess.printRecord("Current user", userRecord(u))
}

func userRecord(u *api.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"bio":        u.Bio,
		"avatar_url": u.AvatarURL,
		"created_at": u.CreatedAt,
	}
}
