package handler

import (
	"net/http"

	"github.com/Aik0o1/cashback-system/prometheus"
	"github.com/labstack/echo/v4"
)

// HealthCheck handles the health check endpoint
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "healthy",
		"service": "cashback-service",
	})
}

// MetricsHandler exposes Prometheus metrics
func MetricsHandler(c echo.Context) error {
	prometheus.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
