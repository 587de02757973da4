// Package prom holds the Prometheus collectors exported at /metrics.
package prom

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizfox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizfox_business_status_transitions_total",
			Help: "Business lifecycle transitions by source and target status",
		},
		[]string{"from", "to"},
	)

	AccessDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizfox_access_denials_total",
			Help: "Denied authorization checks by reason code",
		},
		[]string{"reason"},
	)

	LeadsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizfox_leads_submitted_total",
			Help: "Accepted lead submissions by priority",
		},
		[]string{"priority"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizfox_notifications_total",
			Help: "Notification deliveries by kind and result",
		},
		[]string{"kind", "result"},
	)

	JobQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bizfox_jobqueue_depth",
			Help: "Jobs waiting or in flight in the Redis job queue",
		},
		[]string{"state"},
	)

	DependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bizfox_dependency_up",
			Help: "1 when the last health check of a dependency passed",
		},
		[]string{"dependency"},
	)
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
