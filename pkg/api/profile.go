package api

import (
	"context"
)

// GetProfile returns the caller's profile
func (c *Client) GetProfile(ctx context.Context) (*User, error) {
	return c.getUser(ctx, "/api/v1/profile")
}

// UpdateProfile changes name, email, bio or avatar of the caller
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(update).
		Put("/api/v1/profile")
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var u User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user but the caller, optionally filtered by a name
// or email substring
func (c *Client) ListUsers(ctx context.Context, query string) ([]User, error) {
	req := c.http.R().SetContext(ctx)
	if query != "" {
		req.SetQueryParam("q", query)
	}
	resp, err := req.Get("/api/v1/users")
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var users UsersResponse
	if err := decode(resp, &users); err != nil {
		return nil, err
	}
	return users.Users, nil
}

// SyncUser upserts an identity issued by an external auth provider
func (c *Client) SyncUser(ctx context.Context, req SyncUserRequest) (*User, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/v1/users/sync")
	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var u User
	if err := decode(resp, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
