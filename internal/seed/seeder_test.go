package seed

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BelikanM/cub/internal/database"
	"github.com/BelikanM/cub/internal/models"
)

type SeederSuite struct {
	suite.Suite
	db     *gorm.DB
	seeder *Seeder
}

func TestSeederSuite(t *testing.T) {
	suite.Run(t, new(SeederSuite))
}

func (s *SeederSuite) SetupTest() {
	db, err := database.Open("sqlite", "file::memory:", false)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	s.db = db
	s.seeder = NewSeeder(db)
}

func (s *SeederSuite) count(model any) int64 {
	var n int64
	s.Require().NoError(s.db.Model(model).Count(&n).Error)
	return n
}

func (s *SeederSuite) TestSeedTest() {
	s.Require().NoError(s.seeder.SeedTest())

	s.Equal(int64(5), s.count(&models.User{}))
	s.Equal(int64(10), s.count(&models.Post{}))
	s.Equal(int64(8), s.count(&models.Follow{}))

	var alice models.User
	s.Require().NoError(s.db.Where("email = ?", "alice@example.com").First(&alice).Error)
	s.Require().NotNil(alice.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(*alice.PasswordHash), []byte(DefaultPassword)))

	// second run leaves the data alone
	s.Require().NoError(s.seeder.SeedTest())
	s.Equal(int64(5), s.count(&models.User{}))
	s.Equal(int64(10), s.count(&models.Post{}))
}

func (s *SeederSuite) TestSeedDev() {
	cfg := DevConfig{Users: 6, Posts: 20, Follows: 3, Media: 4}
	s.Require().NoError(s.seeder.SeedDev(cfg))

	s.Equal(int64(6), s.count(&models.User{}))
	s.Equal(int64(20), s.count(&models.Post{}))
	s.Equal(int64(4), s.count(&models.MediaAsset{}))
	s.LessOrEqual(s.count(&models.Follow{}), int64(6*3))

	var selfFollows int64
	s.Require().NoError(s.db.Model(&models.Follow{}).Where("follower_id = followed_id").Count(&selfFollows).Error)
	s.Zero(selfFollows)

	var posts []models.Post
	s.Require().NoError(s.db.Find(&posts).Error)
	for _, p := range posts {
		s.NotEmpty(p.UserName)
		s.NotEmpty(p.Content)
	}
}

func (s *SeederSuite) TestCleanKeepsOtherUsers() {
	keep := &models.User{Email: "someone@real.test", Name: "Real"}
	s.Require().NoError(s.db.Create(keep).Error)
	s.Require().NoError(s.db.Create(&models.Post{UserID: keep.ID, Content: "mine"}).Error)

	s.Require().NoError(s.seeder.SeedTest())
	s.Require().NoError(s.seeder.Clean())

	s.Equal(int64(1), s.count(&models.User{}))
	s.Equal(int64(1), s.count(&models.Post{}))
	s.Zero(s.count(&models.Follow{}))
}
