package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/BelikanM/cub/pkg/auth"
	"github.com/BelikanM/cub/pkg/livefeed"
	"github.com/BelikanM/cub/pkg/logger"
	"github.com/BelikanM/cub/pkg/output"
	"github.com/BelikanM/cub/pkg/remote"
)

// PostService provides post-related operations
type PostService struct {
	s *Session
}

// NewPostService creates a new post service
func NewPostService(s *Session) *PostService {
	return &PostService{s: s}
}

func (ps *PostService) open(ctx context.Context, filter remote.Filter) (*livefeed.View, error) {
	return ps.s.OpenView(ctx, remote.TablePosts, filter, nil)
}

// List prints posts newest first, optionally only those of userID
func (ps *PostService) List(ctx context.Context, userID string) error {
	var filter remote.Filter
	if userID != "" {
		filter = remote.Eq("user_id", userID)
	}
	v, err := ps.open(ctx, filter)
	if err != nil {
		return err
	}
	defer v.Close()

	items := v.Items()
	if len(items) == 0 && ps.s.Format == output.FormatText {
		fmt.Fprintln(ps.s.Out, "No posts yet.")
		return nil
	}
	return ps.s.printItems(remote.TablePosts, items)
}

// Create publishes a post with text, an image URL or both
func (ps *PostService) Create(ctx context.Context, content, imageURL string) (remote.Item, error) {
	logger.Debug("Creating post", "has_image", imageURL != "")

	v, err := ps.open(ctx, remote.Filter{})
	if err != nil {
		return remote.Item{}, err
	}
	defer v.Close()

	fields := map[string]any{"content": strings.TrimSpace(content)}
	if imageURL != "" {
		fields["image_url"] = imageURL
	}
	if ps.s.UserName != "" {
		fields["user_name"] = ps.s.UserName
	}
	item, err := ps.s.Dispatcher(v).CreateItem(ctx, fields)
	if err != nil {
		return remote.Item{}, auth.HandleSessionError(err)
	}
	return item, nil
}

// Like adds one like to a post
func (ps *PostService) Like(ctx context.Context, id string) (int, error) {
	v, err := ps.open(ctx, remote.Filter{})
	if err != nil {
		return 0, err
	}
	defer v.Close()

	if err := ps.s.Dispatcher(v).Like(ctx, id); err != nil {
		return 0, auth.HandleSessionError(err)
	}
	item, _ := v.Reconciler().Get(id)
	return item.Int("likes"), nil
}

// Edit replaces the text of one of the caller's posts
func (ps *PostService) Edit(ctx context.Context, id, content string) error {
	v, err := ps.open(ctx, remote.Filter{})
	if err != nil {
		return err
	}
	defer v.Close()

	err = ps.s.Dispatcher(v).UpdateField(ctx, id, map[string]any{"content": content})
	return auth.HandleSessionError(err)
}

// Delete removes one of the caller's posts
func (ps *PostService) Delete(ctx context.Context, id string) error {
	v, err := ps.open(ctx, remote.Filter{})
	if err != nil {
		return err
	}
	defer v.Close()

	return auth.HandleSessionError(ps.s.Dispatcher(v).DeleteItem(ctx, id))
}

// Watch prints the feed and reprints it on every change until ctx is done
func (ps *PostService) Watch(ctx context.Context) error {
	return watch(ctx, ps.s, remote.TablePosts, remote.Filter{})
}

func watch(ctx context.Context, s *Session, table string, filter remote.Filter) error {
	if !s.Live() {
		output.PrintWarning("No live feed; showing a snapshot")
	}
	render := func(items []remote.Item) {
		if s.Format == output.FormatText {
			fmt.Fprintf(s.Out, "\n-- %s (%d) --\n", table, len(items))
		}
		if err := s.printItems(table, items); err != nil {
			logger.Warn("Render failed", "error", err)
		}
	}
	v, err := s.OpenView(ctx, table, filter, render)
	if err != nil {
		return err
	}
	defer v.Close()

	if !v.Live() {
		return nil
	}
	<-ctx.Done()
	return nil
}
