package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/CreditFox/app/controllers"
	"github.com/ManuelReschke/CreditFox/app/models"
	"github.com/ManuelReschke/CreditFox/internal/pkg/constants"
	"github.com/ManuelReschke/CreditFox/internal/pkg/env"
	"github.com/ManuelReschke/CreditFox/internal/pkg/middleware"
)

// The SPA reads the csrf_ cookie set on any GET and echoes it in the
// X-Csrf-Token header. The group also covers the API routes installed after
// it.
func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), constants.WebhookPrefix)
		},
	}

	corsConf := cors.Config{
		AllowOrigins:     env.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, X-Csrf-Token",
		AllowCredentials: true,
	}

	group := app.Group("", cors.New(corsConf), csrf.New(csrfConf))
	group.Get(constants.FlashMessageRoute, controllers.HandleFlashMessage)
	group.Post("/logout", controllers.HandleAuthLogout)
	group.Get(constants.PayPalCheckoutRoute,
		h.payments.IdentityFailed(models.PaymentProviderPayPal),
		middleware.RequireUserPage(h.svc.Resolver),
		h.payments.HandlePayPalCheckout,
	)
}
