// Package access decides whether a principal may perform an operation.
//
// Every boundary (HTTP middleware, services) calls one of the Engine entry
// points; role and plan checks are never repeated ad hoc in handlers.
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/entitlements"
)

// Principal is the per-request view of the caller. It is rebuilt from the
// session on every request and never stored globally.
type Principal struct {
	UserID        uint        `json:"user_id"`
	Name          string      `json:"name"`
	Role          models.Role `json:"role"`
	Authenticated bool        `json:"authenticated"`
}

// Anonymous returns a principal without identity
func Anonymous() Principal {
	return Principal{Role: models.RoleVisitor}
}

// IDPtr returns the user id as a pointer, nil for anonymous callers
func (p Principal) IDPtr() *uint {
	if !p.Authenticated || p.UserID == 0 {
		return nil
	}
	id := p.UserID
	return &id
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed         bool
	Reason          apperror.Code
	Message         string
	UpgradeRequired bool
	// Bypassed is set when the development admin bypass granted the request.
	Bypassed bool
}

// Err converts a deny into an *apperror.Error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &apperror.Error{Code: d.Reason, Message: d.Message, Upgrade: d.UpgradeRequired}
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason apperror.Code, message string) Decision {
	return Decision{Reason: reason, Message: message, UpgradeRequired: reason == apperror.CodePlanInsufficient}
}

// PlanResolver finds the business whose plan applies to an owner.
// repository.BusinessRepository satisfies it.
type PlanResolver interface {
	FirstByOwner(ownerID uint) (*models.Business, error)
}

// Engine evaluates role and plan requirements
type Engine struct {
	plans     PlanResolver
	devBypass bool
}

// Option configures an Engine
type Option func(*Engine)

// WithDevBypass lets anonymous callers pass administrative checks.
// Only enable for local development.
func WithDevBypass(enabled bool) Option {
	return func(e *Engine) {
		e.devBypass = enabled
	}
}

// NewEngine creates an access engine backed by plans
func NewEngine(plans PlanResolver, opts ...Option) *Engine {
	e := &Engine{plans: plans}
	for _, opt := range opts {
		opt(e)
	}
	if e.devBypass {
		log.Warn("[Access] ADMIN_DEV_BYPASS is enabled: anonymous requests pass admin checks")
	}
	return e
}

// DevBypass reports whether the development admin bypass is active
func (e *Engine) DevBypass() bool {
	return e.devBypass
}

// ResolvePlan returns the plan of the principal's first owned business.
// Owners without a business are on FREE_TRIAL.
func (e *Engine) ResolvePlan(p Principal) (models.PlanType, error) {
	business, err := e.plans.FirstByOwner(p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.PlanFreeTrial, nil
		}
		return "", err
	}
	if !business.PlanType.Valid() {
		return models.PlanFreeTrial, nil
	}
	return business.PlanType, nil
}

// Authorize checks that p holds one of allowedRoles and, for business owners,
// that their plan is one of requiredPlans when any are given.
func (e *Engine) Authorize(p Principal, allowedRoles []models.Role, requiredPlans ...models.PlanType) Decision {
	if !p.Authenticated {
		if e.devBypass && onlyAdminRoles(allowedRoles) {
			return e.bypass()
		}
		return deny(apperror.CodeUnauthenticated, "authentication required")
	}

	if !containsRole(allowedRoles, p.Role) {
		return deny(apperror.CodeRoleForbidden, "requires role "+joinRoles(allowedRoles))
	}

	if p.Role == models.RoleBusinessOwner && len(requiredPlans) > 0 {
		plan, err := e.ResolvePlan(p)
		if err != nil {
			log.Errorf("[Access] plan lookup failed for user %d: %v", p.UserID, err)
			return deny(apperror.CodePlanInsufficient, "plan could not be verified")
		}
		if !entitlements.Includes(requiredPlans, plan) {
			return deny(apperror.CodePlanInsufficient, "requires plan "+joinPlans(requiredPlans))
		}
	}

	return allow()
}

// AuthorizeAdmin allows any administrative staff role
func (e *Engine) AuthorizeAdmin(p Principal) Decision {
	return e.Authorize(p, models.AdminRoles)
}

// AuthorizeSuperAdmin allows ADMIN only. Used for settings and destructive operations.
func (e *Engine) AuthorizeSuperAdmin(p Principal) Decision {
	return e.Authorize(p, []models.Role{models.RoleAdmin})
}

// AuthorizeBusinessAccess allows the owner of business and administrative staff.
// Plan requirements only apply to the owner.
func (e *Engine) AuthorizeBusinessAccess(p Principal, business *models.Business, requiredPlans ...models.PlanType) Decision {
	if !p.Authenticated {
		if e.devBypass {
			return e.bypass()
		}
		return deny(apperror.CodeUnauthenticated, "authentication required")
	}
	if p.Role.IsAdmin() {
		return allow()
	}
	if p.Role != models.RoleBusinessOwner || business.OwnerID != p.UserID {
		return deny(apperror.CodeRoleForbidden, "you do not have access to this business")
	}
	if len(requiredPlans) > 0 && !entitlements.Includes(requiredPlans, business.PlanType) {
		return deny(apperror.CodePlanInsufficient, "requires plan "+joinPlans(requiredPlans))
	}
	return allow()
}

func (e *Engine) bypass() Decision {
	log.Warn("[Access] admin check satisfied by ADMIN_DEV_BYPASS for anonymous request")
	return Decision{Allowed: true, Bypassed: true}
}

func onlyAdminRoles(roles []models.Role) bool {
	if len(roles) == 0 {
		return false
	}
	for _, r := range roles {
		if !r.IsAdmin() {
			return false
		}
	}
	return true
}

func containsRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func joinRoles(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return fmt.Sprintf("one of [%s]", strings.Join(parts, ", "))
}

func joinPlans(plans []models.PlanType) string {
	parts := make([]string, len(plans))
	for i, p := range plans {
		parts[i] = string(p)
	}
	return fmt.Sprintf("one of [%s]", strings.Join(parts, ", "))
}
