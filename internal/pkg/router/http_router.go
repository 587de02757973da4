package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizFox/internal/pkg/middleware"
	"github.com/ManuelReschke/BizFox/internal/pkg/oauth"
	"github.com/ManuelReschke/BizFox/internal/pkg/session"
)

type HttpRouter struct {
	services *Services
	h        *handlers
}

func (r HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(r.services.Repos.User))

	r.registerPublicRoutes(app)
	r.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(s *Services, h *handlers) *HttpRouter {
	return &HttpRouter{services: s, h: h}
}
