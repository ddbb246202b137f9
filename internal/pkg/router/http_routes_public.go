package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CreditFox/app/controllers"
	"github.com/ManuelReschke/CreditFox/internal/pkg/constants"
)

// Routes registered here run before the CSRF group.
func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// PayPal lands here after the buyer approves or cancels
	app.Get(constants.PayPalReturnRoute, controllers.HandlePayPalReturn)

	// Provider webhooks (no CSRF, signature-verified in the payment service)
	app.Post(constants.StripeWebhookRoute, h.payments.HandleStripeWebhook)
}
