// Package health checks the backing services and serves the result at /healthz.
package health

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
)

const checkTimeout = 2 * time.Second

// Check reports whether one dependency is reachable
type Check func(ctx context.Context) error

// Result is the outcome of a single check
type Result struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report is the outcome of one full run
type Report struct {
	Healthy   bool      `json:"healthy"`
	Checks    []Result  `json:"checks"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor runs registered checks and keeps the latest report
type Monitor struct {
	mu     sync.RWMutex
	checks map[string]Check
	last   *Report
}

func NewMonitor() *Monitor {
	return &Monitor{checks: make(map[string]Check)}
}

// Add registers a named check, replacing one with the same name
func (m *Monitor) Add(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Run executes every check and stores the report
func (m *Monitor) Run(ctx context.Context) Report {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()
	sort.Strings(names)

	report := Report{Healthy: true, Checks: make([]Result, 0, len(names)), CheckedAt: time.Now()}
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](cctx)
		cancel()

		result := Result{Name: name, Healthy: err == nil}
		up := 1.0
		if err != nil {
			result.Error = err.Error()
			report.Healthy = false
			up = 0
			log.Warnf("[Health] %s check failed: %v", name, err)
		}
		prom.DependencyUp.WithLabelValues(name).Set(up)
		report.Checks = append(report.Checks, result)
	}

	m.mu.Lock()
	m.last = &report
	m.mu.Unlock()
	return report
}

// Last returns the most recent report, nil before the first run
func (m *Monitor) Last() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// RunTask adapts Run to the background task signature
func (m *Monitor) RunTask(ctx context.Context) error {
	m.Run(ctx)
	return nil
}

// Handler runs the checks and answers 200 when all pass, 503 otherwise
func (m *Monitor) Handler(c *fiber.Ctx) error {
	report := m.Run(c.UserContext())
	status := fiber.StatusOK
	if !report.Healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

// SQLPing checks a database/sql handle
func SQLPing(db *sql.DB) Check {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not initialized")
		}
		return db.PingContext(ctx)
	}
}

// RedisPing checks a Redis client
func RedisPing(client *redis.Client) Check {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not initialized")
		}
		return client.Ping(ctx).Err()
	}
}
