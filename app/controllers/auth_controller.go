package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CreditFox/internal/pkg/session"
	"github.com/ManuelReschke/CreditFox/internal/pkg/usercontext"
)

// HandleAuthLogout handles POST /logout
func HandleAuthLogout(c *fiber.Ctx) error {
	if err := session.Destroy(c); err != nil {
		log.Errorf("[Auth] logout failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "logout failed",
		})
	}
	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{})
	return c.JSON(fiber.Map{"message": "logged out"})
}
