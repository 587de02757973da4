package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
)

// RequestMetrics counts requests by method, matched route and status.
// Labels use the matched route pattern, not the raw path.
func RequestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		prom.HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		return err
	}
}
