package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/app/repository/repotest"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
	"github.com/ManuelReschke/BizFox/internal/pkg/constants"
	"github.com/ManuelReschke/BizFox/internal/pkg/leads"
	"github.com/ManuelReschke/BizFox/internal/pkg/lifecycle"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
	"github.com/ManuelReschke/BizFox/internal/pkg/reviews"
	"github.com/ManuelReschke/BizFox/internal/pkg/settings"
	"github.com/ManuelReschke/BizFox/internal/pkg/statistics"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

type recordingDispatcher struct {
	sent []notify.Message
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

type countingViews struct{ views map[uint]int }

func (v *countingViews) AddBusinessView(_ context.Context, id uint) error {
	v.views[id]++
	return nil
}

type stubCaptcha struct{ err error }

func (s stubCaptcha) Verify(context.Context, string) error { return s.err }

type fixture struct {
	app        *fiber.App
	store      *repotest.Store
	repos      *repository.Repositories
	dispatcher *recordingDispatcher
	views      *countingViews
	settings   *settings.Service
}

// newFixture mounts the API handlers. Requests carry the caller in the
// X-Test-User header, resolved against the in-memory users.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	repos := store.Repositories()
	d := &recordingDispatcher{}
	views := &countingViews{views: map[uint]int{}}

	engine := access.NewEngine(repos.Business)
	recorder := audit.NewRecorder(repos.AuditLog)
	ss := settings.NewService(repos.Setting, recorder)
	rs := reviews.NewService(repos, engine, recorder, nil)
	lc := lifecycle.NewService(repos, recorder, d)
	ls := leads.NewService(repos, engine, d)

	bc := NewBusinessController(repos, lc, rs, recorder, views)
	rc := NewReviewController(bc, rs, ss, stubCaptcha{err: errors.New("bad token")})
	lead := NewLeadController(repos, ls, rs, engine)
	ac := NewAdminController(repos, ss, statistics.NewService(repos, nil), recorder, d, nil)
	auth := NewAuthController(repos.User, d)

	app := fiber.New(fiber.Config{ErrorHandler: apperror.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		if raw := c.Get("X-Test-User"); raw != "" {
			id, _ := strconv.Atoi(raw)
			u, err := repos.User.GetByID(uint(id))
			require.NoError(t, err)
			usercontext.Set(c, usercontext.UserContext{UserID: u.ID, Username: u.Name, Role: u.Role, IsLoggedIn: true, IsAdmin: u.Role.IsAdmin()})
		}
		return c.Next()
	})

	app.Post("/auth/register", auth.HandleRegister)
	app.Post("/auth/login", auth.HandleAPILogin)
	app.Get("/businesses", bc.HandleList)
	app.Get("/businesses/:slug", bc.HandleShow)
	app.Get("/businesses/:slug/reviews", rc.HandleListForBusiness)
	app.Post("/reviews", rc.HandleSubmit)
	app.Post("/leads", lead.HandleSubmit)
	app.Post("/dashboard/businesses", bc.HandleCreate)
	app.Get("/dashboard/analytics/:businessId", lead.HandleAnalytics)
	app.Patch("/dashboard/leads/:businessId/:leadId", lead.HandleAdvance)
	app.Post("/admin/business-status", bc.HandleSetStatus)
	app.Post("/admin/categories", bc.HandleCreateCategory)
	app.Get("/admin/settings", ac.HandleSettings)
	app.Put("/admin/settings", ac.HandleSettingsUpdate)
	app.Post("/admin/emails", ac.HandleSendEmail)
	app.Get("/admin/queue", ac.HandleQueue)
	app.Patch("/admin/users/:id", ac.HandleUserUpdate)

	return &fixture{app: app, store: store, repos: repos, dispatcher: d, views: views, settings: ss}
}

func (f *fixture) user(t *testing.T, role models.Role) *models.User {
	t.Helper()
	u, err := models.CreateUser("User "+string(role), string(role)+"@example.com", "secret123", role)
	require.NoError(t, err)
	require.NoError(t, f.repos.User.Create(u))
	return u
}

func (f *fixture) business(t *testing.T, owner *models.User, slug string, status models.BusinessStatus, plan models.PlanType) *models.Business {
	t.Helper()
	b := &models.Business{Name: "Shop " + slug, Slug: slug, OwnerID: owner.ID, Status: status, PlanType: plan}
	require.NoError(t, f.repos.Business.Create(b))
	return b
}

func (f *fixture) do(t *testing.T, method, path string, body any, user *models.User) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("X-Test-User", strconv.Itoa(int(user.ID)))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if raw, _ := io.ReadAll(resp.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func TestPublicListing_OnlyActive(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)
	f.business(t, owner, "open-shop", models.BusinessStatusActive, models.PlanBasic)
	f.business(t, owner, "pending-shop", models.BusinessStatusPending, models.PlanBasic)

	status, body := f.do(t, http.MethodGet, "/businesses", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["total"])

	status, body = f.do(t, http.MethodGet, "/businesses/pending-shop", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(apperror.CodeNotFound), body["error"])
}

func TestShowBusiness_IncludesRatingAndCountsView(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)
	b := f.business(t, owner, "open-shop", models.BusinessStatusActive, models.PlanBasic)

	status, _ := f.do(t, http.MethodPost, "/reviews", map[string]any{"businessId": b.ID, "rating": 4, "content": "Great coffee"}, nil)
	require.Equal(t, http.StatusCreated, status)

	status, body := f.do(t, http.MethodGet, "/businesses/open-shop", nil, nil)
	require.Equal(t, http.StatusOK, status)
	rating := body["rating"].(map[string]any)
	assert.Equal(t, float64(4), rating["average"])
	assert.Equal(t, float64(1), rating["count"])
	assert.Equal(t, 1, f.views.views[b.ID])
}

func TestReviewSubmit_CaptchaForAnonymousWhenEnabled(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)
	visitor := f.user(t, models.RoleVisitor)
	admin := f.user(t, models.RoleAdmin)
	b := f.business(t, owner, "open-shop", models.BusinessStatusActive, models.PlanBasic)

	_, err := f.settings.Update(access.Principal{UserID: admin.ID, Role: models.RoleAdmin, Authenticated: true}, map[string]settings.Input{
		settings.KeyReviewsRequireCaptcha: {Value: true, Type: settings.TypeBoolean},
	})
	require.NoError(t, err)

	review := map[string]any{"businessId": b.ID, "rating": 5, "content": "Lovely place"}
	status, body := f.do(t, http.MethodPost, "/reviews", review, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperror.CodeValidation), body["error"])

	status, _ = f.do(t, http.MethodPost, "/reviews", review, visitor)
	assert.Equal(t, http.StatusCreated, status)
}

func TestCreateBusiness_OwnerGetsPending(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)

	status, body := f.do(t, http.MethodPost, "/dashboard/businesses", map[string]any{"name": "Café Ünal"}, owner)
	require.Equal(t, http.StatusCreated, status)
	business := body["business"].(map[string]any)
	assert.Equal(t, "cafe-unal", business["slug"])
	assert.Equal(t, string(models.BusinessStatusPending), business["status"])
	assert.Equal(t, string(models.PlanFreeTrial), business["plan_type"])
}

func TestSetStatus_AuditsAndNotifies(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)
	admin := f.user(t, models.RoleAdmin)
	b := f.business(t, owner, "new-shop", models.BusinessStatusPending, models.PlanBasic)

	status, body := f.do(t, http.MethodPost, "/admin/business-status", map[string]any{
		"businessId": b.ID, "status": "ACTIVE", "reason": "looks good", "sendEmail": true,
	}, admin)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["notificationQueued"])

	entries := f.store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionBusinessStatusChange, entries[0].Action)
	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, notify.KindApproved, f.dispatcher.sent[0].StatusChange.Kind)

	status, body = f.do(t, http.MethodPost, "/admin/business-status", map[string]any{
		"businessId": b.ID, "status": "PENDING",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperror.CodeInvalidTransition), body["error"])
}

func TestLeadSubmit_ReturnsExpectedResponseTime(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)
	b := f.business(t, owner, "vip-shop", models.BusinessStatusActive, models.PlanVIP)
	inactive := f.business(t, owner, "closed-shop", models.BusinessStatusSuspended, models.PlanVIP)

	lead := map[string]any{"businessId": b.ID, "name": "Customer", "email": "c@example.com", "message": "Do you deliver?"}
	status, body := f.do(t, http.MethodPost, "/leads", lead, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotZero(t, body["leadId"])
	assert.NotEmpty(t, body["expectedResponseTime"])

	lead["businessId"] = inactive.ID
	status, _ = f.do(t, http.MethodPost, "/leads", lead, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodPost, "/leads", map[string]any{"businessId": b.ID}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["fields"])
}

func TestAdvanceLead_OtherOwnerForbidden(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)
	other, err := models.CreateUser("Other owner", "other@example.com", "secret123", models.RoleBusinessOwner)
	require.NoError(t, err)
	require.NoError(t, f.repos.User.Create(other))
	b := f.business(t, owner, "shop", models.BusinessStatusActive, models.PlanPro)

	_, body := f.do(t, http.MethodPost, "/leads", map[string]any{"businessId": b.ID, "name": "Cu", "email": "c@example.com", "message": "Hello"}, nil)
	path := "/dashboard/leads/" + strconv.Itoa(int(b.ID)) + "/" + strconv.Itoa(int(body["leadId"].(float64)))

	status, _ := f.do(t, http.MethodPatch, path, map[string]any{"status": "CONTACTED"}, other)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.do(t, http.MethodPatch, path, map[string]any{"status": "CONTACTED"}, owner)
	require.Equal(t, http.StatusOK, status)
	assert.NotNil(t, body["lead"].(map[string]any)["responded_at"])
}

func TestAnalytics_PlanGated(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, models.RoleBusinessOwner)
	basic := f.business(t, owner, "basic-shop", models.BusinessStatusActive, models.PlanBasic)
	pro := f.business(t, owner, "pro-shop", models.BusinessStatusActive, models.PlanPro)

	status, body := f.do(t, http.MethodGet, "/dashboard/analytics/"+strconv.Itoa(int(basic.ID)), nil, owner)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(apperror.CodePlanInsufficient), body["error"])
	assert.Equal(t, apperror.UpgradeURL, body["upgrade_url"])

	status, body = f.do(t, http.MethodGet, "/dashboard/analytics/"+strconv.Itoa(int(pro.ID)), nil, owner)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "leads")
	assert.Contains(t, body, "rating")
}

func TestSettings_UpdateAndRead(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, models.RoleAdmin)

	status, body := f.do(t, http.MethodPut, "/admin/settings", map[string]any{
		"settings": map[string]any{
			"site.title":         map[string]any{"value": "Local Finder", "type": "string"},
			"leads.notify_owner": map[string]any{"value": "false", "type": "boolean"},
		},
	}, admin)
	require.Equal(t, http.StatusOK, status)
	assert.ElementsMatch(t, []any{"site.title", "leads.notify_owner"}, body["updated"])

	status, body = f.do(t, http.MethodGet, "/admin/settings", nil, admin)
	require.Equal(t, http.StatusOK, status)
	organized := body["settings"].(map[string]any)
	assert.Equal(t, "Local Finder", organized["site"].(map[string]any)["title"])
	assert.Equal(t, false, organized["leads"].(map[string]any)["notify_owner"])

	entries := f.store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionSettingsUpdate, entries[0].Action)
}

func TestSendEmail_NoAuditWhenDispatchFails(t *testing.T) {
	f := newFixture(t)
	support := f.user(t, models.RoleSupport)
	email := map[string]any{"to": "owner@example.com", "subject": "Hello", "body": "Welcome aboard"}

	status, _ := f.do(t, http.MethodPost, "/admin/emails", email, support)
	require.Equal(t, http.StatusAccepted, status)
	require.Len(t, f.store.AuditEntries(), 1)

	f.dispatcher.err = errors.New("queue down")
	status, body := f.do(t, http.MethodPost, "/admin/emails", email, support)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["message"])
	assert.Len(t, f.store.AuditEntries(), 1)
}

func TestQueue_InlineMode(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, models.RoleAdmin)

	status, body := f.do(t, http.MethodGet, "/admin/queue", nil, admin)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "inline", body["mode"])
}

func TestCreateCategory_SlugTaken(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, models.RoleAdmin)

	status, body := f.do(t, http.MethodPost, "/admin/categories", map[string]any{"name": "Coffee Shops"}, admin)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "coffee-shops", body["category"].(map[string]any)["slug"])

	status, body = f.do(t, http.MethodPost, "/admin/categories", map[string]any{"name": "Coffee shops"}, admin)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperror.CodeSlugTaken), body["error"])
}

func TestUserUpdate_CannotChangeSelf(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, models.RoleAdmin)
	visitor := f.user(t, models.RoleVisitor)

	status, _ := f.do(t, http.MethodPatch, "/admin/users/"+strconv.Itoa(int(admin.ID)), map[string]any{"status": "disabled"}, admin)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := f.do(t, http.MethodPatch, "/admin/users/"+strconv.Itoa(int(visitor.ID)), map[string]any{"role": "MODERATOR"}, admin)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(models.RoleModerator), body["user"].(map[string]any)["role"])
	assert.Equal(t, models.ActionUserUpdate, f.store.AuditEntries()[0].Action)
}

func TestRegister_WelcomeAndDuplicate(t *testing.T) {
	f := newFixture(t)
	reg := map[string]any{"name": "Jane Doe", "email": "jane@example.com", "password": "secret123", "accountType": "business_owner"}

	status, body := f.do(t, http.MethodPost, "/auth/register", reg, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, string(models.RoleBusinessOwner), body["user"].(map[string]any)["role"])
	require.Len(t, f.dispatcher.sent, 1)
	assert.Equal(t, notify.KindWelcome, f.dispatcher.sent[0].Kind)

	status, body = f.do(t, http.MethodPost, "/auth/register", reg, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(apperror.CodeValidation), body["error"])

	reg["email"] = "admin@example.com"
	reg["accountType"] = "admin"
	status, _ = f.do(t, http.MethodPost, "/auth/register", reg, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRegister_WelcomeFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.err = errors.New("smtp down")

	status, _ := f.do(t, http.MethodPost, "/auth/register", map[string]any{"name": "Jane Doe", "email": "jane@example.com", "password": "secret123"}, nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestAPILogin_BadCredentials(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, models.RoleVisitor)

	status, body := f.do(t, http.MethodPost, "/auth/login", map[string]any{"email": u.Email, "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid email or password", body["message"])

	status, _ = f.do(t, http.MethodPost, "/auth/login", map[string]any{"email": "nobody@example.com", "password": "secret123"}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPagination_ClampsPageAndLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/page", func(c *fiber.Ctx) error {
		page, limit, offset := pagination(c)
		return c.JSON(fiber.Map{"page": page, "limit": limit, "offset": offset})
	})

	cases := []struct {
		query               string
		page, limit, offset int
	}{
		{"", 1, constants.DefaultPageSize, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=-4&limit=0", 1, constants.DefaultPageSize, 0},
		{"?limit=5000", 1, constants.MaxPageSize, 0},
		{"?page=9223372036854775807&limit=100", constants.MaxPage, 100, (constants.MaxPage - 1) * 100},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest("GET", "/page"+tc.query, nil))
		require.NoError(t, err)
		var got map[string]int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, tc.page, got["page"], tc.query)
		assert.Equal(t, tc.limit, got["limit"], tc.query)
		assert.Equal(t, tc.offset, got["offset"], tc.query)
		assert.GreaterOrEqual(t, got["offset"], 0, tc.query)
	}
}
