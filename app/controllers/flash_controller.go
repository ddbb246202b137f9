package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/CreditFox/internal/pkg/constants"
)

// HandlePayPalReturn is where PayPal sends the browser back to. Crediting
// happens in the backend's PayPal callback, so this only informs the user.
// Query: ?status=cancel when the buyer aborted.
func HandlePayPalReturn(c *fiber.Ctx) error {
	if c.Query("status") == "cancel" {
		return flash.WithInfo(c, fiber.Map{
			"type":    "info",
			"message": "PayPal payment cancelled. No credits were charged.",
		}).Redirect(constants.PublicRoute)
	}
	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "Thanks! Your credits will appear as soon as PayPal confirms the payment.",
	}).Redirect(constants.PublicRoute)
}

// HandleFlashMessage hands the pending flash message to the SPA, which
// cannot read the flash cookie itself.
func HandleFlashMessage(c *fiber.Ctx) error {
	msg := flash.Get(c)
	if len(msg) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(msg)
}
