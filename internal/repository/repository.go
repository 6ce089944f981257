package repository

import (
	"gorm.io/gorm"

	"github.com/BelikanM/cub/internal/changefeed"
)

// Repositories bundles the data access objects the handlers need
type Repositories struct {
	Users   UserRepository
	Posts   *PostTable
	Media   *MediaTable
	Follows *FollowTable
}

// New wires every repository to db, publishing table writes to feed
func New(db *gorm.DB, feed changefeed.Publisher) *Repositories {
	return &Repositories{
		Users:   NewUserRepository(db),
		Posts:   NewPostTable(db, feed),
		Media:   NewMediaTable(db, feed),
		Follows: NewFollowTable(db, feed),
	}
}

// Filterable reports whether table exists and column may be used to filter it
func (r *Repositories) Filterable(table, column string) (tableOK, columnOK bool) {
	switch table {
	case r.Posts.Name():
		return true, column == "" || r.Posts.CanFilter(column)
	case r.Media.Name():
		return true, column == "" || r.Media.CanFilter(column)
	case r.Follows.Name():
		return true, column == "" || r.Follows.CanFilter(column)
	}
	return false, false
}
