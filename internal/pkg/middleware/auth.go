package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
	icuser "github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

// KeyAccessBypass is set in Locals when the development admin bypass granted a request
const KeyAccessBypass = "access_bypass"

// RequireAuth ensures a logged-in web session; redirects to /login if missing.
func RequireAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	return c.Next()
}

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !icuser.IsLoggedIn(c) {
		return apperror.Respond(c, apperror.Unauthenticated("login required"))
	}
	return c.Next()
}

// Guard turns access engine decisions into route middleware
type Guard struct {
	engine *access.Engine
}

func NewGuard(engine *access.Engine) *Guard {
	return &Guard{engine: engine}
}

// RequireRoles allows principals holding one of roles. Plans, when given,
// apply to business owners only.
func (g *Guard) RequireRoles(roles []models.Role, plans ...models.PlanType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return g.enforce(c, g.engine.Authorize(icuser.GetPrincipal(c), roles, plans...))
	}
}

// RequireAdmin allows any administrative staff role
func (g *Guard) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return g.enforce(c, g.engine.AuthorizeAdmin(icuser.GetPrincipal(c)))
	}
}

// RequireSuperAdmin allows ADMIN only
func (g *Guard) RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return g.enforce(c, g.engine.AuthorizeSuperAdmin(icuser.GetPrincipal(c)))
	}
}

// RequireOwner allows business owners and administrative staff
func (g *Guard) RequireOwner() fiber.Handler {
	roles := append([]models.Role{models.RoleBusinessOwner}, models.AdminRoles...)
	return g.RequireRoles(roles)
}

// RequirePlan allows business owners on one of plans. Staff roles pass without a plan.
func (g *Guard) RequirePlan(plans ...models.PlanType) fiber.Handler {
	roles := append([]models.Role{models.RoleBusinessOwner}, models.AdminRoles...)
	return g.RequireRoles(roles, plans...)
}

func (g *Guard) enforce(c *fiber.Ctx, decision access.Decision) error {
	if !decision.Allowed {
		prom.AccessDenials.WithLabelValues(string(decision.Reason)).Inc()
		return apperror.Respond(c, decision.Err())
	}
	if decision.Bypassed {
		c.Locals(KeyAccessBypass, true)
	}
	return c.Next()
}
