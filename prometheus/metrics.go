package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_register_total",
			Help: "Total number of tenant registrations",
		},
	)

	// Token refresh counter
	RefreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_token_refresh_total",
			Help: "Total number of refresh-token exchanges",
		},
	)

	// Lockout counter
	LockoutCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "access_lockout_total",
			Help: "Total number of logins rejected by the throttle",
		},
	)

	// Workspace operation counter
	WorkspaceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_workspace_operations_total",
			Help: "Total number of workspace operations",
		},
		[]string{"operation"}, // "create", "switch", "list", "resolve", etc.
	)

	// Invitation operation counter
	InvitationOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_invitation_operations_total",
			Help: "Total number of invitation operations",
		},
		[]string{"operation"}, // "create", "accept", "decline", "revoke", "sweep"
	)

	// Billing gate denial counter
	LimitDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_limit_denied_total",
			Help: "Total number of operations denied by the billing gate",
		},
		[]string{"dimension"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_errors_total",
			Help: "Total number of authentication and authorization errors",
		},
		[]string{"type"}, // "invalid_token", "access_denied", "db_error", etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "access_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "access_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active tokens
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "access_active_tokens",
			Help: "Number of currently active authentication tokens",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "access_info",
			Help: "Information about the access service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(RefreshCounter)
	prometheus.MustRegister(LockoutCounter)
	prometheus.MustRegister(WorkspaceOperationCounter)
	prometheus.MustRegister(InvitationOperationCounter)
	prometheus.MustRegister(LimitDeniedCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// DecreaseActiveTokens decrements the active tokens gauge
func DecreaseActiveTokens() {
	ActiveTokensGauge.Dec()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordWorkspaceOperation records a workspace operation
func RecordWorkspaceOperation(operation string) {
	WorkspaceOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordInvitationOperation records an invitation operation
func RecordInvitationOperation(operation string) {
	InvitationOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordLimitDenied records a billing gate denial by dimension
func RecordLimitDenied(dimension string) {
	LimitDeniedCounter.With(prometheus.Labels{"dimension": dimension}).Inc()
}
