package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/constants"
	"github.com/ManuelReschke/BizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizFox/internal/pkg/middleware"
)

type ApiRouter struct {
	h *handlers
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "RATE_LIMITED",
				"message": "too many requests",
			})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := app.Group(constants.APIPrefix)
	r.registerPublic(v1)
	r.registerAuth(v1)
	r.registerDashboard(v1)
	r.registerAdmin(v1)
}

func (r ApiRouter) registerPublic(v1 fiber.Router) {
	v1.Get("/stats", r.h.main.HandlePublicStats)
	v1.Get("/categories", r.h.business.HandleCategories)
	v1.Get("/businesses", r.h.business.HandleList)
	v1.Get("/businesses/:slug", r.h.business.HandleShow)
	v1.Get("/businesses/:slug/reviews", r.h.review.HandleListForBusiness)
	v1.Post("/reviews", r.h.review.HandleSubmit)
	v1.Post("/leads", r.h.lead.HandleSubmit)
}

func (r ApiRouter) registerAuth(v1 fiber.Router) {
	auth := v1.Group("/auth")
	auth.Post("/register", r.h.auth.HandleRegister)
	auth.Post("/login", r.h.auth.HandleAPILogin)
	auth.Post("/logout", middleware.RequireAPISessionAuth, r.h.auth.HandleAPILogout)
	auth.Get("/me", r.h.auth.HandleMe)
}

func (r ApiRouter) registerDashboard(v1 fiber.Router) {
	dashboard := v1.Group("/dashboard", r.h.guard.RequireOwner())
	dashboard.Get("/businesses", r.h.business.HandleOwnerList)
	dashboard.Post("/businesses", r.h.business.HandleCreate)
	dashboard.Post("/businesses/:id/submit", r.h.business.HandleSubmit)
	dashboard.Post("/reviews/:id/response", r.h.review.HandleRespond)
	dashboard.Get("/leads/:businessId", r.h.lead.HandleList)
	dashboard.Get("/leads/:businessId/:leadId", r.h.lead.HandleGet)
	dashboard.Patch("/leads/:businessId/:leadId", r.h.lead.HandleAdvance)
	dashboard.Get("/analytics/:businessId", r.h.guard.RequirePlan(entitlements.AnalyticsPlans...), r.h.lead.HandleAnalytics)
}

func (r ApiRouter) registerAdmin(v1 fiber.Router) {
	g := r.h.guard
	admin := v1.Group("/admin", g.RequireAdmin())

	admin.Get("/businesses", r.h.business.HandleAdminList)
	admin.Post("/business-status", r.h.business.HandleSetStatus)
	admin.Post("/business-plan", g.RequireRoles([]models.Role{models.RoleAdmin, models.RoleFinance}), r.h.business.HandleChangePlan)
	admin.Post("/categories", g.RequireSuperAdmin(), r.h.business.HandleCreateCategory)

	moderators := g.RequireRoles([]models.Role{models.RoleAdmin, models.RoleModerator})
	admin.Post("/reviews/:id/hide", moderators, r.h.review.HandleHide)
	admin.Post("/reviews/:id/show", moderators, r.h.review.HandleShow)

	admin.Get("/settings", r.h.admin.HandleSettings)
	admin.Put("/settings", g.RequireSuperAdmin(), r.h.admin.HandleSettingsUpdate)

	admin.Post("/emails", g.RequireRoles([]models.Role{models.RoleAdmin, models.RoleSupport}), r.h.admin.HandleSendEmail)
	admin.Get("/queue", r.h.admin.HandleQueue)
	admin.Get("/stats", r.h.admin.HandleStats)
	admin.Get("/audit-log", r.h.admin.HandleAuditLog)

	admin.Get("/users", r.h.admin.HandleUsers)
	admin.Patch("/users/:id", g.RequireSuperAdmin(), r.h.admin.HandleUserUpdate)
}

func NewApiRouter(h *handlers) *ApiRouter {
	return &ApiRouter{h: h}
}
