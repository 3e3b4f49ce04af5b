package prometheus

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	RegisterCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashback_register_total",
			Help: "Total number of account registrations by kind",
		},
		[]string{"kind"}, // "user", "merchant", "admin"
	)

	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashback_login_total",
			Help: "Total number of login attempts by kind",
		},
		[]string{"kind"},
	)

	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashback_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "invalid_request", "not_found", "invalid_password", ...
	)

	TransactionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashback_transaction_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"operation"}, // "create", "checkout", "status_update", "delete"
	)

	SettlementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashback_settlements_total",
			Help: "Total number of settlement attempts by result",
		},
		[]string{"result"}, // "settled", "already_settled", "not_found", "error"
	)

	ExportCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashback_exports_total",
			Help: "Total number of report exports by format",
		},
		[]string{"format"}, // "csv", "xlsx", "pdf"
	)

	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cashback_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cashback_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cashback_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cashback_active_tokens",
			Help: "Number of session tokens issued and not yet expired",
		},
	)

	AdminFloatGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cashback_admin_float",
			Help: "Last observed admin float balance",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers all metrics with the default registry
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RegisterCounter,
			LoginCounter,
			AuthErrorCounter,
			TransactionCounter,
			SettlementCounter,
			ExportCounter,
			HTTPRequestCounter,
			RequestDuration,
			DBOperationDuration,
			ActiveTokensGauge,
			AdminFloatGauge,
		)
	})
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// TrackDBOperation returns a function that records the duration of a database
// operation when called. Use with defer.
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware records request counts and durations per endpoint
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			HTTPRequestCounter.WithLabelValues(endpoint, method, status).Inc()
			RequestDuration.WithLabelValues(endpoint, method, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler exposes the default registry over HTTP
func Handler() http.Handler {
	return promhttp.Handler()
}
