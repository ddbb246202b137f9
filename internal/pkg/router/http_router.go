package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CreditFox/app/controllers"
	"github.com/ManuelReschke/CreditFox/internal/pkg/middleware"
	"github.com/ManuelReschke/CreditFox/internal/pkg/oauth"
	"github.com/ManuelReschke/CreditFox/internal/pkg/session"
)

type HttpRouter struct {
	svc      *Services
	payments *controllers.PaymentController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(svc *Services) *HttpRouter {
	return &HttpRouter{svc: svc, payments: svc.paymentController()}
}
