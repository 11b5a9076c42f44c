package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
	customMiddleware "github.com/avatarctic/tiered-cache/go/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	BuildID      string
	InstanceID   string
}

type ServerDeps struct {
	CacheHandler   ports.CacheHandler
	TieredCache    ports.TieredCache
	HealthCheckers []ports.HealthChecker
	// Registry receives the HTTP collectors and is served on /metrics.
	// A fresh registry is created when nil.
	Registry *prometheus.Registry
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	handler        ports.CacheHandler
	tiers          ports.TieredCache
	registry       *prometheus.Registry
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, jwtSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		handler:        deps.CacheHandler,
		tiers:          deps.TieredCache,
		registry:       registry,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			jwtSecret,
			customMiddleware.NewHTTPMetrics(registry),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
