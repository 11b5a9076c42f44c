package middleware

import (
	"github.com/sirupsen/logrus"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	JWT     *JWTMiddleware
	Logging *LoggingMiddleware
	Metrics *MetricsMiddleware
}

// NewMiddlewareCollection creates a new collection of all middleware
func NewMiddlewareCollection(logger *logrus.Logger, jwtSecret string, metrics *HTTPMetrics) *MiddlewareCollection {
	return &MiddlewareCollection{
		JWT:     NewJWTMiddleware(jwtSecret, logger),
		Logging: NewLoggingMiddleware(logger),
		Metrics: NewMetricsMiddleware(metrics),
	}
}
