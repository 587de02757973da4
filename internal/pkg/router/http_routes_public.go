package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizFox/internal/pkg/constants"
	"github.com/ManuelReschke/BizFox/internal/pkg/middleware"
)

func (r HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.PricingRoute, r.h.main.HandlePricing)
	app.Get("/b/:slug", r.h.main.HandleBusinessPage)

	// Auth
	app.Post("/logout", middleware.RequireAuth, r.h.auth.HandleLogout)

	// Social OAuth
	app.Get("/auth/:provider", r.h.oauth.HandleBegin)
	app.Get("/auth/:provider/callback", r.h.oauth.HandleCallback)
}
