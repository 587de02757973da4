package constants

// Route prefixes shared by the router and views
const (
	PublicRoute    = "/"
	APIPrefix      = "/api/v1"
	DashboardRoute = "/api/v1/dashboard"
	AdminRoute     = "/api/v1/admin"
	DocsRoute      = "/docs/api"
	MetricsRoute   = "/metrics"
	HealthRoute    = "/healthz"
	PricingRoute   = "/pricing"
)

// Pagination defaults for list endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 10000
)
