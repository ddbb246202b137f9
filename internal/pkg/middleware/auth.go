package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/CreditFox/internal/pkg/backend"
	"github.com/ManuelReschke/CreditFox/internal/pkg/constants"
	"github.com/ManuelReschke/CreditFox/internal/pkg/identity"
	"github.com/ManuelReschke/CreditFox/internal/pkg/usercontext"
)

const resolveTimeout = 15 * time.Second

// UserResolver loads the backend user for an email.
type UserResolver interface {
	Resolve(ctx context.Context, email string) (*backend.User, error)
}

// RequireUser resolves the paying user from the session email, falling back
// to ?email=, and answers with a JSON error when that fails.
func RequireUser(r UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := resolve(c, r)
		if err != nil {
			status, body := identityError(err)
			return c.Status(status).JSON(body)
		}
		usercontext.SetUser(c, u)
		return c.Next()
	}
}

// RequireUserPage is RequireUser for full page navigations; failures are
// flashed and redirect home.
func RequireUserPage(r UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := resolve(c, r)
		if err != nil {
			_, body := identityError(err)
			return flash.WithError(c, fiber.Map{"type": "error", "message": body["message"]}).Redirect(constants.PublicRoute)
		}
		usercontext.SetUser(c, u)
		return c.Next()
	}
}

func resolve(c *fiber.Ctx, r UserResolver) (*backend.User, error) {
	email := identity.PickEmail(usercontext.GetUserContext(c).Email, c.Query("email"))
	ctx, cancel := context.WithTimeout(c.UserContext(), resolveTimeout)
	defer cancel()
	return r.Resolve(ctx, email)
}

func identityError(err error) (int, fiber.Map) {
	switch {
	case errors.Is(err, identity.ErrAuthenticationRequired):
		return fiber.StatusUnauthorized, fiber.Map{
			"error":   "unauthorized",
			"message": "authentication required",
		}
	case errors.Is(err, identity.ErrLookupFailed):
		log.Warnf("[Identity] %v", err)
		return fiber.StatusBadGateway, fiber.Map{
			"error":   "lookup_failed",
			"message": "Could not load your account. Please try again.",
			"retry":   true,
		}
	default:
		log.Errorf("[Identity] %v", err)
		return fiber.StatusInternalServerError, fiber.Map{
			"error":   "incomplete_user",
			"message": "failed to load user",
		}
	}
}
