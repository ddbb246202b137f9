package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
)

// UserContext is the identity-provider login attached to the request, if any.
type UserContext struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Provider   string `json:"provider"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// SetUser attaches the resolved backend user to the request.
func SetUser(c *fiber.Ctx, u *backend.User) {
	c.Locals(KeyUser, u)
}

// GetUser returns the resolved backend user, or nil before resolution.
func GetUser(c *fiber.Ctx) *backend.User {
	if u, ok := c.Locals(KeyUser).(*backend.User); ok {
		return u
	}
	return nil
}
