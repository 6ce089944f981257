package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/BelikanM/cub/internal/changefeed"
	"github.com/BelikanM/cub/internal/database"
	apperrors "github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/models"
)

type recordingFeed struct {
	changes []changefeed.Change
}

func (f *recordingFeed) Publish(_ context.Context, c changefeed.Change) {
	f.changes = append(f.changes, c)
}

type RepositorySuite struct {
	suite.Suite
	ctx   context.Context
	feed  *recordingFeed
	repos *Repositories
	alice *models.User
	bob   *models.User
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	db, err := database.Open("sqlite", "file::memory:", false)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s.ctx = context.Background()
	s.feed = &recordingFeed{}
	s.repos = New(db, s.feed)

	s.alice = &models.User{Name: "Alice", Email: "alice@example.com"}
	s.bob = &models.User{Email: "bob@example.com"}
	s.Require().NoError(s.repos.Users.CreateUser(s.ctx, s.alice))
	s.Require().NoError(s.repos.Users.CreateUser(s.ctx, s.bob))
}

func (s *RepositorySuite) TestInsertPostPublishes() {
	p, err := s.repos.Posts.Insert(s.ctx, s.alice.ID, map[string]any{"content": "  hi  "})
	s.Require().NoError(err)

	s.Equal("hi", p.Content)
	s.Equal(s.alice.ID, p.UserID)
	s.Equal("Alice", p.UserName)
	s.Require().Len(s.feed.changes, 1)
	c := s.feed.changes[0]
	s.Equal(changefeed.Insert, c.Event)
	s.Equal(models.TablePosts, c.Table)
	s.Equal(p.ID, c.New["id"])
	s.Nil(c.Old)
}

func (s *RepositorySuite) TestInsertPostValidation() {
	_, err := s.repos.Posts.Insert(s.ctx, s.alice.ID, map[string]any{"content": "   "})
	var fe *apperrors.FieldError
	s.Require().ErrorAs(err, &fe)
	s.Equal("content", fe.Field)

	_, err = s.repos.Posts.Insert(s.ctx, s.alice.ID, map[string]any{"content": "x", "user_id": s.bob.ID})
	s.ErrorIs(err, apperrors.ErrNotOwner)

	_, err = s.repos.Posts.Insert(s.ctx, s.alice.ID, map[string]any{"content": "x", "likes": 100})
	s.ErrorAs(err, &fe)

	s.Empty(s.feed.changes)
}

func (s *RepositorySuite) TestListOrderAndFilter() {
	for _, text := range []string{"one", "two", "three"} {
		_, err := s.repos.Posts.Insert(s.ctx, s.alice.ID, map[string]any{"content": text})
		s.Require().NoError(err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := s.repos.Posts.Insert(s.ctx, s.bob.ID, map[string]any{"content": "bob"})
	s.Require().NoError(err)

	all, err := s.repos.Posts.List(s.ctx, nil, true, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal("bob", all[0].Content)
	s.Equal("one", all[3].Content)

	mine, err := s.repos.Posts.List(s.ctx, []changefeed.Filter{{Column: "user_id", Value: s.alice.ID}}, false, 2)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal("one", mine[0].Content)

	_, err = s.repos.Posts.List(s.ctx, []changefeed.Filter{{Column: "content", Value: "x"}}, true, 0)
	var fe *apperrors.FieldError
	s.ErrorAs(err, &fe)
}

func (s *RepositorySuite) TestUpdateOwnership() {
	p, err := s.repos.Posts.Insert(s.ctx, s.alice.ID, map[string]any{"content": "mine"})
	s.Require().NoError(err)

	_, err = s.repos.Posts.Update(s.ctx, s.bob.ID, p.ID, map[string]any{"content": "hijack"})
	s.ErrorIs(err, apperrors.ErrNotOwner)

	liked, err := s.repos.Posts.Update(s.ctx, s.bob.ID, p.ID, map[string]any{"likes": float64(1)})
	s.Require().NoError(err)
	s.Equal(1, liked.Likes)
	s.Equal("mine", liked.Content)

	edited, err := s.repos.Posts.Update(s.ctx, s.alice.ID, p.ID, map[string]any{"content": "edited"})
	s.Require().NoError(err)
	s.Equal("edited", edited.Content)

	last := s.feed.changes[len(s.feed.changes)-1]
	s.Equal(changefeed.Update, last.Event)
	s.Equal("edited", last.New["content"])
	s.Equal("mine", last.Old["content"])

	_, err = s.repos.Posts.Update(s.ctx, s.alice.ID, p.ID, map[string]any{"likes": -1})
	var fe *apperrors.FieldError
	s.ErrorAs(err, &fe)
	_, err = s.repos.Posts.Update(s.ctx, s.alice.ID, p.ID, map[string]any{"user_id": s.bob.ID})
	s.ErrorAs(err, &fe)
	_, err = s.repos.Posts.Update(s.ctx, s.alice.ID, "missing", map[string]any{"likes": 1})
	s.ErrorIs(err, apperrors.ErrRecordNotFound)
}

func (s *RepositorySuite) TestDeleteOwnership() {
	p, err := s.repos.Posts.Insert(s.ctx, s.alice.ID, map[string]any{"content": "bye"})
	s.Require().NoError(err)

	_, err = s.repos.Posts.Delete(s.ctx, s.bob.ID, p.ID)
	s.ErrorIs(err, apperrors.ErrNotOwner)

	deleted, err := s.repos.Posts.Delete(s.ctx, s.alice.ID, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, deleted.ID)

	last := s.feed.changes[len(s.feed.changes)-1]
	s.Equal(changefeed.Delete, last.Event)
	s.Equal(p.ID, last.Old["id"])
	s.Equal(s.alice.ID, last.Old["user_id"])

	_, err = s.repos.Posts.Get(s.ctx, p.ID)
	s.ErrorIs(err, apperrors.ErrRecordNotFound)
}

func (s *RepositorySuite) TestMedia() {
	m, err := s.repos.Media.Insert(s.ctx, s.alice.ID, map[string]any{
		"file_path": "alice/abc-photo.png",
		"file_size": float64(2048),
		"file_type": "image/png",
	})
	s.Require().NoError(err)
	s.Equal("abc-photo.png", m.FileName)
	s.Equal(int64(2048), m.FileSize)

	_, err = s.repos.Media.Insert(s.ctx, s.alice.ID, map[string]any{"file_name": "x"})
	var fe *apperrors.FieldError
	s.ErrorAs(err, &fe)

	m, err = s.repos.Media.Update(s.ctx, s.alice.ID, m.ID, map[string]any{"description": "sunset"})
	s.Require().NoError(err)
	s.Equal("sunset", m.Description)

	_, err = s.repos.Media.Update(s.ctx, s.alice.ID, m.ID, map[string]any{"description": 3})
	s.ErrorAs(err, &fe)
}

func (s *RepositorySuite) TestFollows() {
	f, err := s.repos.Follows.Insert(s.ctx, s.alice.ID, map[string]any{"followed_id": s.bob.ID})
	s.Require().NoError(err)
	s.Equal(s.alice.ID, f.FollowerID)

	_, err = s.repos.Follows.Insert(s.ctx, s.alice.ID, map[string]any{"followed_id": s.bob.ID})
	s.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = s.repos.Follows.Insert(s.ctx, s.alice.ID, map[string]any{"followed_id": s.alice.ID})
	var fe *apperrors.FieldError
	s.ErrorAs(err, &fe)

	_, err = s.repos.Follows.Insert(s.ctx, s.alice.ID, map[string]any{"followed_id": "ghost"})
	s.ErrorIs(err, apperrors.ErrRecordNotFound)

	_, err = s.repos.Follows.Update(s.ctx, s.alice.ID, f.ID, map[string]any{"followed_id": "x"})
	s.ErrorAs(err, &fe)

	found, err := FindFollow(s.ctx, s.repos.Follows, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(f.ID, found.ID)

	_, err = FindFollow(s.ctx, s.repos.Follows, s.bob.ID, s.alice.ID)
	s.True(errors.Is(err, apperrors.ErrRecordNotFound))
}

func (s *RepositorySuite) TestUsers() {
	u, err := s.repos.Users.GetUserByEmail(s.ctx, "ALICE@example.com")
	s.Require().NoError(err)
	s.Equal(s.alice.ID, u.ID)

	err = s.repos.Users.CreateUser(s.ctx, &models.User{Email: "alice@example.com"})
	s.ErrorIs(err, apperrors.ErrDuplicate)

	bio := "hello"
	u, err = s.repos.Users.UpdateProfile(s.ctx, s.alice.ID, ProfileUpdate{Bio: &bio})
	s.Require().NoError(err)
	s.Equal("hello", u.Bio)
	s.Equal("Alice", u.Name)

	taken := "bob@example.com"
	_, err = s.repos.Users.UpdateProfile(s.ctx, s.alice.ID, ProfileUpdate{Email: &taken})
	s.ErrorIs(err, apperrors.ErrDuplicate)

	_, err = s.repos.Users.UpdateProfile(s.ctx, s.alice.ID, ProfileUpdate{})
	s.ErrorIs(err, ErrInvalidInput)

	others, err := s.repos.Users.SearchUsers(s.ctx, "", s.alice.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(others, 1)
	s.Equal(s.bob.ID, others[0].ID)

	found, err := s.repos.Users.SearchUsers(s.ctx, "ALI", s.bob.ID, 10)
	s.Require().NoError(err)
	s.Len(found, 1)

	n, err := s.repos.Users.GetTotalUserCount(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(2, n)
}

func (s *RepositorySuite) TestUpsertUser() {
	u, err := s.repos.Users.UpsertUser(s.ctx, &models.User{ID: "ext-1", Email: "Carol@Example.com", Name: "Carol"})
	s.Require().NoError(err)
	s.Equal("ext-1", u.ID)
	s.Equal("carol@example.com", u.Email)

	u, err = s.repos.Users.UpsertUser(s.ctx, &models.User{ID: "ext-1", Email: "carol@new.io", AvatarURL: "https://img/c.png"})
	s.Require().NoError(err)
	s.Equal("carol@new.io", u.Email)
	s.Equal("Carol", u.Name)
	s.Equal("https://img/c.png", u.AvatarURL)

	_, err = s.repos.Users.UpsertUser(s.ctx, &models.User{ID: "ext-2", Email: "bob@example.com"})
	s.ErrorIs(err, apperrors.ErrDuplicate)
}
