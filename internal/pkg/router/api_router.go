package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/CreditFox/app/controllers"
	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/env"
	"github.com/ManuelReschke/CreditFox/internal/pkg/middleware"
)

type ApiRouter struct {
	svc      *Services
	payments *controllers.PaymentController
	lookups  *controllers.LookupController
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        env.GetEnvInt("API_RATE_LIMIT", 60),
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests. Please slow down.",
			})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// bonus quotes need no user
	api.Get("/bonus", controllers.HandleBonusQuote)
	api.Get("/lookups/costs", h.lookups.HandleLookupCosts)

	requireUser := middleware.RequireUser(h.svc.Resolver)
	api.Get("/me", requireUser, controllers.HandleAPIMe)

	payments := api.Group("/payments")
	payments.Post("/stripe", h.payments.IdentityFailed(models.PaymentProviderStripe), requireUser, h.payments.HandleStripeStart)
	payments.Post("/stripe/confirm", requireUser, h.payments.HandleStripeConfirm)
	payments.Post("/razorpay", h.payments.IdentityFailed(models.PaymentProviderRazorpay), requireUser, h.payments.HandleRazorpayStart)
	payments.Post("/razorpay/verify", requireUser, h.payments.HandleRazorpayVerify)
	payments.Get("/:id", requireUser, h.payments.HandleGetAttempt)
	payments.Post("/:id/cancel", requireUser, h.payments.HandleCancelAttempt)

	api.Post("/lookups/:kind/debit", requireUser, h.lookups.HandleDebit)
}

func NewApiRouter(svc *Services) *ApiRouter {
	return &ApiRouter{
		svc:      svc,
		payments: svc.paymentController(),
		lookups:  controllers.NewLookupController(svc.Lookups),
	}
}
