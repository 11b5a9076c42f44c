package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/tiered-cache/go/configs"
	"github.com/avatarctic/tiered-cache/go/internal/application/services"
	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/health"
	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/httpserver"
	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/memory"
	"github.com/avatarctic/tiered-cache/go/internal/infrastructure/metrics"
	inframinio "github.com/avatarctic/tiered-cache/go/internal/infrastructure/minio"
	infranats "github.com/avatarctic/tiered-cache/go/internal/infrastructure/nats"
	infraredis "github.com/avatarctic/tiered-cache/go/internal/infrastructure/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(cfg)
	instanceID := uuid.NewString()
	logger.WithFields(logrus.Fields{"build_id": cfg.Cache.BuildID, "instance_id": instanceID}).Info("Starting tiered cache...")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []services.TieredCacheOption{
		services.WithLogger(logger),
		services.WithMetrics(metrics.NewCacheMetrics(registry)),
	}
	var checkers []ports.HealthChecker

	// Remote tiers are optional and connect lazily on first use, so an
	// unreachable backend never blocks startup.
	if cfg.ObjectStore.Enabled() {
		clients := inframinio.NewClientProvider(cfg.ObjectStore)
		store := inframinio.NewObjectStore(clients, inframinio.Config{
			Bucket:  cfg.ObjectStore.Bucket,
			Prefix:  cfg.ObjectStore.Prefix,
			BuildID: cfg.Cache.BuildID,
			Timeout: cfg.ObjectStore.Timeout,
		})
		opts = append(opts, services.WithObjectStore(store))
		checkers = append(checkers, health.NewObjectStoreHealthChecker(clients, cfg.ObjectStore.Bucket))
		logger.WithFields(logrus.Fields{"endpoint": cfg.ObjectStore.Endpoint, "bucket": cfg.ObjectStore.Bucket}).Info("Object tier enabled")
	} else {
		logger.Warn("Object tier disabled - OBJECT_STORE_ENDPOINT or OBJECT_STORE_BUCKET not set")
	}

	switch cfg.Metadata.Backend {
	case config.MetadataBackendRedis:
		clients := infraredis.NewClientProvider(&cfg.Redis)
		defer clients.Close()
		opts = append(opts, services.WithMetadataStore(infraredis.NewMetadataStore(clients, infraredis.MetadataConfig{
			Table:   cfg.Metadata.Table,
			BuildID: cfg.Cache.BuildID,
			Timeout: cfg.Metadata.Timeout,
		})))
		checkers = append(checkers, health.NewRedisHealthChecker(clients))
		logger.WithField("table", cfg.Metadata.Table).Info("Metadata tier enabled on Redis")
	case config.MetadataBackendNATS:
		natsBuckets := infranats.NewBucketProvider(
			infranats.ConnectURL(cfg.NATS.URL, natsgo.Timeout(cfg.Metadata.Timeout)),
			cfg.Metadata.Table,
			infranats.WithBindTimeout(cfg.Metadata.Timeout),
		)
		defer natsBuckets.Close()
		opts = append(opts, services.WithMetadataStore(infranats.NewMetadataStore(natsBuckets, infranats.MetadataConfig{
			BuildID: cfg.Cache.BuildID,
			Timeout: cfg.Metadata.Timeout,
		})))
		checkers = append(checkers, health.NewNATSHealthChecker(natsBuckets))
		logger.WithField("bucket", cfg.Metadata.Table).Info("Metadata tier enabled on NATS JetStream")
	default:
		logger.Warn("Metadata tier disabled - stale local entries will always be refetched")
	}

	tiers := services.NewTieredCacheService(memory.NewRecencyCache(cfg.Cache.Capacity), cfg.Cache.LocalTTL, opts...)
	handler := services.NewCacheHandlerService(tiers, logger)

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
		BuildID:      cfg.Cache.BuildID,
		InstanceID:   instanceID,
	}

	server := httpserver.NewServer(serverConfig, cfg.Server.JWTSecret, logger, httpserver.ServerDeps{
		CacheHandler:   handler,
		TieredCache:    tiers,
		HealthCheckers: checkers,
		Registry:       registry,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// newLogger builds the process logger. CACHE_DEBUG forces debug level.
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Cache.Debug {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}
