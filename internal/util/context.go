package util

import (
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	UserIDKey = "user_id"
	UserKey   = "user"
)

// GetUserIDFromContext extracts the authenticated user id. When it is
// missing it responds with 401 and returns false.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Get(UserIDKey)
	if !ok {
		RespondUnauthorized(c)
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return id, true
}
