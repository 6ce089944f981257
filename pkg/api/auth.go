package api

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/BelikanM/cub/pkg/logger"
)

// Client wraps the account, profile and upload endpoints.
type Client struct {
	http *resty.Client
}

// New returns a Client over c.
func New(c *resty.Client) *Client {
	return &Client{http: c}
}

// Register creates an account with email and password
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	logger.Debug("Registering", "email", req.Email)
	return c.authenticate(ctx, "/api/v1/auth/register", req)
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	logger.Debug("Attempting login", "email", email)
	return c.authenticate(ctx, "/api/v1/auth/login", LoginRequest{Email: email, Password: password})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := decode(resp, &auth); err != nil {
		return nil, err
	}
	logger.Debug("Authenticated", "user_id", auth.User.ID)
	return &auth, nil
}

// Me returns the user behind the current token
func (c *Client) Me(ctx context.Context) (*User, error) {
	return c.getUser(ctx, "/api/v1/auth/me")
}

func (c *Client) getUser(ctx context.Context, path string) (*User, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var u User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
