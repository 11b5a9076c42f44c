package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.Info("Prometheus metrics initialized and registered")
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":         "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":       "Histogram for HTTP request duration by method, endpoint",
			"tiercache_lookups_total":     "Counter for cache lookups by tier, outcome",
			"tiercache_tier_errors_total": "Counter for recoverable tier failures by tier, op",
			"metrics_endpoint":            "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

// Metrics handler
func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// metricsEndpoint serves the server registry in the Prometheus text format.
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	s.metricsHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
