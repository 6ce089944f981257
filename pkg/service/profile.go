package service

import (
	"context"
	"fmt"

	"github.com/BelikanM/cub/pkg/api"
	"github.com/BelikanM/cub/pkg/auth"
	cuberrors "github.com/BelikanM/cub/pkg/errors"
	"github.com/BelikanM/cub/pkg/output"
)

// ProfileService shows and edits the caller's profile and lists other users
type ProfileService struct {
	s *Session
}

// NewProfileService creates a new profile service
func NewProfileService(s *Session) *ProfileService {
	return &ProfileService{s: s}
}

// Show prints the caller's profile
func (ps *ProfileService) Show(ctx context.Context) error {
	u, err := ps.s.API.GetProfile(ctx)
	if err != nil {
		return auth.HandleSessionError(err)
	}
	return ps.s.printRecord("Profile", userRecord(u))
}

// Update changes the non-nil fields of update
func (ps *ProfileService) Update(ctx context.Context, update api.ProfileUpdate) error {
	if update.Name == nil && update.Email == nil && update.Bio == nil && update.AvatarURL == nil {
		return cuberrors.ValidationError("profile", "nothing to update")
	}
	u, err := ps.s.API.UpdateProfile(ctx, update)
	if err != nil {
		return auth.HandleSessionError(err)
	}
	output.PrintSuccess("Profile updated")
	return ps.s.printRecord("Profile", userRecord(u))
}

// Users lists the other users, filtered by query when set
func (ps *ProfileService) Users(ctx context.Context, query string) error {
	users, err := ps.s.API.ListUsers(ctx, query)
	if err != nil {
		return auth.HandleSessionError(err)
	}
	if ps.s.Format == output.FormatJSON {
		s, err := output.FormatAsJSON(users)
		if err != nil {
			return err
		}
		fmt.Fprintln(ps.s.Out, s)
		return nil
	}
	if len(users) == 0 {
		fmt.Fprintln(ps.s.Out, "No users found.")
		return nil
	}
	for _, u := range users {
		fmt.Fprintf(ps.s.Out, "%s  %-20s %s\n", u.ID, u.Name, u.Email)
	}
	return nil
}
