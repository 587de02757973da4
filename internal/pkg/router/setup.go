package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizFox/app/controllers"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
	"github.com/ManuelReschke/BizFox/internal/pkg/leads"
	"github.com/ManuelReschke/BizFox/internal/pkg/lifecycle"
	"github.com/ManuelReschke/BizFox/internal/pkg/middleware"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
	"github.com/ManuelReschke/BizFox/internal/pkg/reviews"
	"github.com/ManuelReschke/BizFox/internal/pkg/settings"
	"github.com/ManuelReschke/BizFox/internal/pkg/statistics"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Services carries everything the handlers need. Queue stays nil when
// notifications are delivered inline.
type Services struct {
	Repos      *repository.Repositories
	Engine     *access.Engine
	Recorder   *audit.Recorder
	Dispatcher notify.Dispatcher
	Lifecycle  *lifecycle.Service
	Leads      *leads.Service
	Reviews    *reviews.Service
	Settings   *settings.Service
	Stats      *statistics.Service
	Queue      controllers.QueueInspector
	Views      controllers.ViewCounter
	Captcha    controllers.CaptchaVerifier
}

// handlers is the controller set shared by the HTML and API routers
type handlers struct {
	guard    *middleware.Guard
	auth     *controllers.AuthController
	oauth    *controllers.OAuthController
	business *controllers.BusinessController
	review   *controllers.ReviewController
	lead     *controllers.LeadController
	admin    *controllers.AdminController
	main     *controllers.MainController
}

func newHandlers(s *Services) *handlers {
	business := controllers.NewBusinessController(s.Repos, s.Lifecycle, s.Reviews, s.Recorder, s.Views)
	return &handlers{
		guard:    middleware.NewGuard(s.Engine),
		auth:     controllers.NewAuthController(s.Repos.User, s.Dispatcher),
		oauth:    controllers.NewOAuthController(s.Repos),
		business: business,
		review:   controllers.NewReviewController(business, s.Reviews, s.Settings, s.Captcha),
		lead:     controllers.NewLeadController(s.Repos, s.Leads, s.Reviews, s.Engine),
		admin:    controllers.NewAdminController(s.Repos, s.Settings, s.Stats, s.Recorder, s.Dispatcher, s.Queue),
		main:     controllers.NewMainController(business, s.Reviews, s.Settings, s.Stats),
	}
}

func InstallRouter(app *fiber.App, s *Services) {
	// The HTML router installs the session store and the UserContext
	// middleware, which the API routes depend on.
	h := newHandlers(s)
	setup(app, NewHttpRouter(s, h), NewApiRouter(h))

	app.Use(h.main.HandleNotFound)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
