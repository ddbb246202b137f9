package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CreditFox/internal/pkg/constants"
	"github.com/ManuelReschke/CreditFox/internal/pkg/session"
	"github.com/ManuelReschke/CreditFox/internal/pkg/usercontext"
)

// UserContextMiddleware attaches the OAuth login stored in the session to
// every request.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Goth keeps its own session store on /auth/*.
	if strings.HasPrefix(c.Path(), constants.AuthPrefix) || session.GetSessionStore() == nil {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{})
		return c.Next()
	}

	email := session.GetSessionValue(c, session.KeyEmail)
	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
		Email:      email,
		Name:       session.GetSessionValue(c, session.KeyName),
		Provider:   session.GetSessionValue(c, session.KeyProvider),
		IsLoggedIn: email != "",
	})
	return c.Next()
}
