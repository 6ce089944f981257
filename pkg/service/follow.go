package service

import (
	"context"

	"github.com/BelikanM/cub/pkg/auth"
	"github.com/BelikanM/cub/pkg/remote"
)

// FollowService manages the caller's follow edges
type FollowService struct {
	s *Session
}

// NewFollowService creates a new follow service
func NewFollowService(s *Session) *FollowService {
	return &FollowService{s: s}
}

func (fs *FollowService) filter() remote.Filter {
	return remote.Eq("follower_id", fs.s.UserID)
}

// List prints the users the caller follows
func (fs *FollowService) List(ctx context.Context) error {
	v, err := fs.s.OpenView(ctx, remote.TableFollows, fs.filter(), nil)
	if err != nil {
		return err
	}
	defer v.Close()
	return fs.s.printItems(remote.TableFollows, v.Items())
}

// Toggle follows userID, or unfollows if already following. It reports
// whether the caller follows userID afterwards.
func (fs *FollowService) Toggle(ctx context.Context, userID string) (bool, error) {
	v, err := fs.s.OpenView(ctx, remote.TableFollows, fs.filter(), nil)
	if err != nil {
		return false, err
	}
	defer v.Close()

	following, err := fs.s.Dispatcher(v).ToggleFollow(ctx, userID)
	return following, auth.HandleSessionError(err)
}
