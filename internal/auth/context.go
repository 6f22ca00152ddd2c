package auth

import "github.com/gin-gonic/gin"

// Role is the coarse authorization level carried in the access token.
type Role string

const (
	RolePlayer  Role = "player"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePlayer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies who performs an operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

const (
	userIDKey = "userID"
	roleKey   = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetRole returns the authenticated user's role or empty string.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(roleKey); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// GetActor bundles the authenticated identity.
func GetActor(c *gin.Context) Actor {
	return Actor{UserID: GetUserID(c), Role: GetRole(c)}
}
