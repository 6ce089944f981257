package seed

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/models"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Seeded accounts all use this email domain so Clean can find them
const seedDomain = "@example.com"

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	now func() time.Time
}

// DevConfig sizes the development data set
type DevConfig struct {
	Users   int
	Posts   int
	Follows int // per user, at most
	Media   int
}

// DefaultDevConfig returns the sizes used by `seed dev`
func DefaultDevConfig() DevConfig {
	return DevConfig{Users: 50, Posts: 300, Follows: 10, Media: 80}
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	// Seed returns an error only for invalid sources
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db, now: time.Now}
}

// SeedDev fills the database with random users, posts, follows and media
func (s *Seeder) SeedDev(cfg DevConfig) error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(cfg.Users)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if len(users) == 0 {
		return fmt.Errorf("no users available")
	}

	logger.Log.Info("Creating posts...")
	if _, err := s.seedPosts(users, cfg.Posts); err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating follows...")
	if err := s.seedFollows(users, cfg.Follows); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	logger.Log.Info("Creating media...")
	if err := s.seedMedia(users, cfg.Media); err != nil {
		return fmt.Errorf("failed to seed media: %w", err)
	}
	return nil
}

// SeedTest creates a small fixed data set. Running it twice is a no-op
// for users that already exist.
func (s *Seeder) SeedTest() error {
	accounts := []struct {
		name  string
		email string
	}{
		{"Alice Smith", "alice@example.com"},
		{"Bob Johnson", "bob@example.com"},
		{"Charlie Brown", "charlie@example.com"},
		{"Diana Prince", "diana@example.com"},
		{"Eve Wilson", "eve@example.com"},
	}

	hash, err := passwordHash()
	if err != nil {
		return err
	}

	var users []models.User
	created := 0
	for _, acct := range accounts {
		var user models.User
		err := s.db.Where("email = ?", acct.email).First(&user).Error
		if err == nil {
			users = append(users, user)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		local, _, _ := strings.Cut(acct.email, "@")
		user = models.User{
			Name:         acct.name,
			Email:        acct.email,
			Bio:          gofakeit.HipsterSentence(),
			AvatarURL:    avatarURL(local),
			PasswordHash: &hash,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", acct.email, err)
		}
		users = append(users, user)
		created++
	}

	if created == 0 {
		logger.Log.Info("Test users already exist, skipping")
		return nil
	}

	if _, err := s.seedPosts(users, 2*len(users)); err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}
	// alice follows everyone, everyone follows alice
	for _, u := range users[1:] {
		if err := s.follow(users[0].ID, u.ID); err != nil {
			return err
		}
		if err := s.follow(u.ID, users[0].ID); err != nil {
			return err
		}
	}
	return nil
}

// Clean removes seeded accounts and everything they own
func (s *Seeder) Clean() error {
	var ids []string
	if err := s.db.Model(&models.User{}).Where("email LIKE ?", "%"+seedDomain).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to find seed users: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id IN ? OR followed_id IN ?", ids, ids).Delete(&models.Follow{}).Error; err != nil {
			return fmt.Errorf("failed to clean follows: %w", err)
		}
		if err := tx.Where("user_id IN ?", ids).Delete(&models.MediaAsset{}).Error; err != nil {
			return fmt.Errorf("failed to clean media: %w", err)
		}
		if err := tx.Where("user_id IN ?", ids).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("failed to clean posts: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("failed to clean users: %w", err)
		}
		logger.Log.Info("Removed seed users", zap.Int("count", len(ids)))
		return nil
	})
}

// seedUsers creates count users with random profiles. Existing seed users
// count towards the total.
func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	var users []models.User
	if err := s.db.Where("email LIKE ?", "%"+seedDomain).Find(&users).Error; err != nil {
		return nil, err
	}
	if len(users) >= count {
		logger.Log.Info("Found existing users, skipping creation", zap.Int("seed_users", len(users)))
		return users, nil
	}

	hash, err := passwordHash()
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(users))
	for _, u := range users {
		taken[u.Email] = true
	}

	created := 0
	for len(users) < count {
		username := strings.ToLower(gofakeit.Username())
		email := username + seedDomain
		if taken[email] {
			continue
		}
		taken[email] = true

		user := models.User{
			Name:         gofakeit.Name(),
			Email:        email,
			Bio:          gofakeit.HipsterSentence(),
			AvatarURL:    avatarURL(username),
			PasswordHash: &hash,
			CreatedAt:    s.pastDate(),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
		created++
	}

	logger.Log.Info("Created seed users",
		zap.Int("new_users", created),
		zap.Int("total_users", len(users)))
	return users, nil
}

// seedPosts spreads count posts over users. Some posts carry an image.
func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for range count {
		author := users[rand.Intn(len(users))]
		post := models.Post{
			UserID:    author.ID,
			UserName:  author.DisplayName(),
			Content:   gofakeit.HipsterSentence(),
			Likes:     gofakeit.Number(0, 50),
			CreatedAt: s.pastDate(),
		}
		if rand.Float32() < 0.25 {
			post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.Word())
		}
		posts = append(posts, post)
	}
	if len(posts) == 0 {
		return posts, nil
	}
	if err := s.db.CreateInBatches(&posts, 100).Error; err != nil {
		return nil, err
	}
	logger.Log.Info("Created posts", zap.Int("count", len(posts)))
	return posts, nil
}

// seedFollows gives every user up to maxPerUser distinct follows
func (s *Seeder) seedFollows(users []models.User, maxPerUser int) error {
	total := 0
	for _, u := range users {
		others := make([]models.User, 0, len(users)-1)
		for _, o := range users {
			if o.ID != u.ID {
				others = append(others, o)
			}
		}
		rand.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

		n := min(len(others), gofakeit.Number(0, maxPerUser))
		for _, followed := range others[:n] {
			if err := s.follow(u.ID, followed.ID); err != nil {
				return err
			}
			total++
		}
	}
	logger.Log.Info("Created follows", zap.Int("count", total))
	return nil
}

func (s *Seeder) follow(followerID, followedID string) error {
	var n int64
	err := s.db.Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	if err != nil || n > 0 {
		return err
	}
	return s.db.Create(&models.Follow{
		FollowerID: followerID,
		FollowedID: followedID,
		CreatedAt:  s.pastDate(),
	}).Error
}

// seedMedia records image files hosted on a placeholder service. No
// objects are uploaded.
func (s *Seeder) seedMedia(users []models.User, count int) error {
	media := make([]models.MediaAsset, 0, count)
	for range count {
		owner := users[rand.Intn(len(users))]
		word := strings.ToLower(gofakeit.Word())
		name := word + ".jpg"
		media = append(media, models.MediaAsset{
			UserID:      owner.ID,
			FilePath:    fmt.Sprintf("media/%s/%s-%s", owner.ID, gofakeit.UUID(), name),
			FileName:    name,
			Description: gofakeit.HipsterSentence(),
			FileType:    "image/jpeg",
			FileSize:    int64(gofakeit.Number(50_000, 5_000_000)),
			PublicURL:   fmt.Sprintf("https://picsum.photos/seed/%s/1024/768", word),
			CreatedAt:   s.pastDate(),
		})
	}
	if len(media) == 0 {
		return nil
	}
	if err := s.db.CreateInBatches(&media, 100).Error; err != nil {
		return err
	}
	logger.Log.Info("Created media", zap.Int("count", len(media)))
	return nil
}

// pastDate is a random time within the last 30 days
func (s *Seeder) pastDate() time.Time {
	now := s.now()
	return gofakeit.DateRange(now.AddDate(0, 0, -30), now).UTC()
}

func passwordHash() (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func avatarURL(seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", seed)
}
