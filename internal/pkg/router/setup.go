package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router registers a set of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, svc *Services) {
	// Install HttpRouter first to initialize session store, oauth providers,
	// the global UserContext middleware and CSRF. The API routes depend on
	// all of them.
	setup(app, NewHttpRouter(svc), NewApiRouter(svc))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
