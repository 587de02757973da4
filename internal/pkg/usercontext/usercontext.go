package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID     uint        `json:"user_id"`
	Username   string      `json:"username"`
	Role       models.Role `json:"role"`
	IsLoggedIn bool        `json:"is_logged_in"`
	IsAdmin    bool        `json:"is_admin"`
}

// Principal converts the request context into the value the access engine evaluates
func (u UserContext) Principal() access.Principal {
	if !u.IsLoggedIn {
		return access.Anonymous()
	}
	return access.Principal{
		UserID:        u.UserID,
		Name:          u.Username,
		Role:          u.Role,
		Authenticated: true,
	}
}

// Set stores the context on the request
func Set(c *fiber.Ctx, u UserContext) {
	c.Locals(LocalsKey, u)
	c.Locals(KeyFromProtected, u.IsLoggedIn)
	c.Locals(KeyIsAdmin, u.IsAdmin)
	if u.IsLoggedIn {
		c.Locals(KeyUserID, u.UserID)
		c.Locals(KeyUsername, u.Username)
	}
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(LocalsKey).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// GetPrincipal returns the access principal of the current request
func GetPrincipal(c *fiber.Ctx) access.Principal {
	return GetUserContext(c).Principal()
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user holds an administrative role
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
