package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository/repotest"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/session"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

type fixture struct {
	app   *fiber.App
	store *repotest.Store
}

func newFixture(t *testing.T, opts ...access.Option) *fixture {
	t.Helper()
	session.SetSessionStore(fibersession.New())
	t.Cleanup(func() { session.SetSessionStore(nil) })

	store := repotest.NewStore()
	repos := store.Repositories()
	guard := NewGuard(access.NewEngine(repos.Business, opts...))

	app := fiber.New()
	app.Use(UserContextMiddleware(repos.User))
	app.Get("/test-login/:id", func(c *fiber.Ctx) error {
		id, _ := c.ParamsInt("id")
		if err := session.Login(c, uint(id), "test", ""); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/admin", guard.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"bypass": c.Locals(KeyAccessBypass) != nil})
	})
	app.Get("/settings", guard.RequireSuperAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/analytics", guard.RequirePlan(models.PlanPro, models.PlanVIP), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/account", RequireAuth, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return &fixture{app: app, store: store}
}

func (f *fixture) addUser(t *testing.T, role models.Role, status string) *models.User {
	t.Helper()
	u := &models.User{Name: "user " + string(role), Email: string(role) + "@example.com", Role: role, Status: status}
	require.NoError(t, f.store.Repositories().User.Create(u))
	return u
}

func (f *fixture) login(t *testing.T, id uint) *http.Cookie {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest("GET", "/test-login/"+repotest.IDString(id), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			return ck
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (f *fixture) get(t *testing.T, path string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) apperror.Body {
	t.Helper()
	var body apperror.Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestUserContext_AnonymousWithoutSession(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/whoami", nil)

	var uc usercontext.UserContext
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uc))
	assert.False(t, uc.IsLoggedIn)
	assert.Zero(t, uc.UserID)
}

func TestUserContext_LoadsRoleFromUserRecord(t *testing.T) {
	f := newFixture(t)
	mod := f.addUser(t, models.RoleModerator, models.STATUS_ACTIVE)
	cookie := f.login(t, mod.ID)

	resp := f.get(t, "/whoami", cookie)
	var uc usercontext.UserContext
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uc))
	assert.True(t, uc.IsLoggedIn)
	assert.Equal(t, mod.ID, uc.UserID)
	assert.Equal(t, models.RoleModerator, uc.Role)
	assert.True(t, uc.IsAdmin)
}

func TestUserContext_DisabledUserIsAnonymous(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, models.RoleAdmin, models.STATUS_DISABLED)
	cookie := f.login(t, u.ID)

	resp := f.get(t, "/admin", cookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUserContext_LookupFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, models.RoleAdmin, models.STATUS_ACTIVE)
	cookie := f.login(t, u.ID)
	f.store.UserErr = errors.New("connection refused")

	resp := f.get(t, "/admin", cookie)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, apperror.CodeInternal, decodeError(t, resp).Error)
}

func TestUserContext_DeletedUserIsAnonymous(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, 4242)

	resp := f.get(t, "/admin", cookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGuard_Admin(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleBusinessOwner, models.STATUS_ACTIVE)
	support := f.addUser(t, models.RoleSupport, models.STATUS_ACTIVE)

	resp := f.get(t, "/admin", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, apperror.CodeUnauthenticated, decodeError(t, resp).Error)

	resp = f.get(t, "/admin", f.login(t, owner.ID))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, apperror.CodeRoleForbidden, decodeError(t, resp).Error)

	supportCookie := f.login(t, support.ID)
	resp = f.get(t, "/admin", supportCookie)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// settings are ADMIN only
	resp = f.get(t, "/settings", supportCookie)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGuard_PlanInsufficientCarriesUpgradeURL(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleBusinessOwner, models.STATUS_ACTIVE)
	require.NoError(t, f.store.Repositories().Business.Create(&models.Business{
		Name: "Basic Shop", Slug: "basic-shop", OwnerID: owner.ID, PlanType: models.PlanBasic,
	}))
	cookie := f.login(t, owner.ID)

	resp := f.get(t, "/analytics", cookie)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, apperror.CodePlanInsufficient, body.Error)
	assert.Equal(t, apperror.UpgradeURL, body.UpgradeURL)
}

func TestGuard_PlanSatisfied(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, models.RoleBusinessOwner, models.STATUS_ACTIVE)
	require.NoError(t, f.store.Repositories().Business.Create(&models.Business{
		Name: "Vip Shop", Slug: "vip-shop", OwnerID: owner.ID, PlanType: models.PlanVIP,
	}))

	resp := f.get(t, "/analytics", f.login(t, owner.ID))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGuard_DevBypassMarksRequest(t *testing.T) {
	f := newFixture(t, access.WithDevBypass(true))

	resp := f.get(t, "/admin", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["bypass"])

	// the bypass never grants owner routes
	resp = f.get(t, "/analytics", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_RedirectsToLogin(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/account", nil)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}
