package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
	"github.com/ManuelReschke/BizFox/internal/pkg/cache"
	"github.com/ManuelReschke/BizFox/internal/pkg/constants"
	"github.com/ManuelReschke/BizFox/internal/pkg/database"
	"github.com/ManuelReschke/BizFox/internal/pkg/env"
	"github.com/ManuelReschke/BizFox/internal/pkg/events"
	"github.com/ManuelReschke/BizFox/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/BizFox/internal/pkg/health"
	"github.com/ManuelReschke/BizFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/BizFox/internal/pkg/leads"
	"github.com/ManuelReschke/BizFox/internal/pkg/lifecycle"
	"github.com/ManuelReschke/BizFox/internal/pkg/mail"
	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
	"github.com/ManuelReschke/BizFox/internal/pkg/middleware"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
	"github.com/ManuelReschke/BizFox/internal/pkg/reviews"
	"github.com/ManuelReschke/BizFox/internal/pkg/router"
	"github.com/ManuelReschke/BizFox/internal/pkg/settings"
	"github.com/ManuelReschke/BizFox/internal/pkg/statistics"
)

const (
	viewFlushInterval    = 5 * time.Second
	statsRefreshInterval = 10 * time.Minute
	healthCheckInterval  = 60 * time.Second
)

func main() {
	app, manager, publisher := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("[Main] shutting down")
		manager.Stop()
		publisher.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("[Main] shutdown: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() (*fiber.App, *jobqueue.Manager, events.Publisher) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/bizfox to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:        html.New(basePath+"views", ".html"),
		ErrorHandler: apperror.ErrorHandler,
		BodyLimit:    1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New(), middleware.RequestMetrics())

	// metrics
	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	})
	app.Get("/monitor", metricsAuth, monitor.New())
	app.Get(constants.MetricsRoute, metricsAuth, adaptor.HTTPHandler(prom.Handler()))

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsRoute + "/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	services, manager, publisher := newServices()

	// HEALTH
	checks := health.NewMonitor()
	sqlDB, err := database.GetDB().DB()
	if err != nil {
		log.Warnf("[Main] database handle unavailable for health checks: %v", err)
	}
	checks.Add("database", health.SQLPing(sqlDB))
	checks.Add("redis", health.RedisPing(cache.GetClient()))
	manager.AddTask(jobqueue.Task{Name: "health check", Interval: healthCheckInterval, Run: checks.RunTask})
	app.Get(constants.HealthRoute, checks.Handler)

	manager.Start()

	// ROUTER
	router.InstallRouter(app, services)

	return app, manager, publisher
}

// newServices wires repositories, engines and background work
func newServices() (*router.Services, *jobqueue.Manager, events.Publisher) {
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	publisher, err := events.Connect(env.GetEnv("NATS_URL", ""))
	if err != nil {
		log.Warnf("[Main] domain events disabled: %v", err)
		publisher = events.NopPublisher{}
	}

	engine := access.NewEngine(repos.Business, access.WithDevBypass(env.AdminDevBypass()))
	recorder := audit.NewRecorder(repos.AuditLog)
	settingsService := settings.NewService(repos.Setting, recorder)
	stats := statistics.NewService(repos, statistics.RedisCache())
	views := counter.New(cache.GetClient(), database.GetDB())

	manager := jobqueue.NewManager(jobqueue.NewQueue(env.GetInt("JOBQUEUE_WORKERS", jobqueue.DefaultWorkers)))
	jobqueue.SetManager(manager)
	queue := manager.GetQueue()

	siteName := env.GetEnv("SITE_NAME", "BizFox")
	notifier := notify.NewMailNotifier(mail.NewSenderFromEnv(), siteName)

	var dispatcher notify.Dispatcher
	var inspector *jobqueue.Queue
	switch env.GetEnv("NOTIFY_MODE", "queue") {
	case "inline":
		log.Info("[Main] notifications are delivered inline")
		dispatcher = notify.InlineDispatcher{Notifier: notifier}
	default:
		queue.Handle(jobqueue.JobTypeNotification, jobqueue.NotificationHandler(notifier))
		dispatcher = jobqueue.NewNotificationDispatcher(queue)
		inspector = queue
	}

	queue.Handle(jobqueue.JobTypeStatsRefresh, func(ctx context.Context, _ *jobqueue.Job) error {
		return stats.RefreshPublic()
	})
	manager.AddTask(jobqueue.Task{Name: "view counter flush", Interval: viewFlushInterval, Run: views.FlushAll})
	manager.AddTask(jobqueue.Task{Name: "stats refresh", Interval: statsRefreshInterval, Run: func(ctx context.Context) error {
		_, err := queue.EnqueueJobWithRetries(ctx, jobqueue.JobTypeStatsRefresh, map[string]interface{}{}, 1)
		return err
	}})

	lifecycleService := lifecycle.NewService(repos, recorder, dispatcher,
		lifecycle.WithMode(lifecycle.ParseMode(env.GetEnv("BUSINESS_TRANSITIONS", string(lifecycle.ModeStrict)))),
		lifecycle.WithPublisher(publisher),
		lifecycle.WithAutoApprove(func() bool { return settingsService.Bool(settings.KeyModerationAutoApprove) }),
	)
	leadService := leads.NewService(repos, engine, dispatcher,
		leads.WithPublisher(publisher),
		leads.WithOwnerNotification(func() bool { return settingsService.Bool(settings.KeyLeadsNotifyOwner) }),
	)

	services := &router.Services{
		Repos:      repos,
		Engine:     engine,
		Recorder:   recorder,
		Dispatcher: dispatcher,
		Lifecycle:  lifecycleService,
		Leads:      leadService,
		Reviews:    reviews.NewService(repos, engine, recorder, publisher),
		Settings:   settingsService,
		Stats:      stats,
		Views:      views,
		Captcha:    hcaptcha.NewFromEnv(),
	}
	// a nil *Queue must not become a non-nil interface
	if inspector != nil {
		services.Queue = inspector
	}
	return services, manager, publisher
}
