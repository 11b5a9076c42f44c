package configs

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Cache       CacheConfig
	ObjectStore ObjectStoreConfig
	Metadata    MetadataConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	// JWTSecret guards the cache API when set; empty disables auth.
	JWTSecret string
}

type CacheConfig struct {
	BuildID  string
	LocalTTL time.Duration
	Capacity int
	Debug    bool
}

type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
	Timeout   time.Duration
}

// Enabled reports whether enough is configured to talk to the object tier.
func (c ObjectStoreConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Metadata backends.
const (
	MetadataBackendNone  = "none"
	MetadataBackendRedis = "redis"
	MetadataBackendNATS  = "nats"
)

type MetadataConfig struct {
	Backend string
	Table   string
	Timeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type NATSConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
			JWTSecret:    getEnv("API_JWT_SECRET", ""),
		},
		Cache: CacheConfig{
			BuildID:  getEnv("CACHE_BUILD_ID", "development"),
			LocalTTL: time.Duration(getInt64Env("CACHE_LOCAL_TTL_MS", 60000)) * time.Millisecond,
			Capacity: getIntEnv("CACHE_LOCAL_CAPACITY", 1000),
			Debug:    getBoolEnv("CACHE_DEBUG", false),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:  getEnv("OBJECT_STORE_ENDPOINT", ""),
			Region:    getEnv("OBJECT_STORE_REGION", "us-east-1"),
			AccessKey: getEnv("OBJECT_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("OBJECT_STORE_SECRET_KEY", ""),
			Bucket:    getEnv("OBJECT_STORE_BUCKET", ""),
			Prefix:    getEnv("OBJECT_STORE_PREFIX", ""),
			UseSSL:    getBoolEnv("OBJECT_STORE_USE_SSL", true),
			Timeout:   getDurationEnv("OBJECT_STORE_TIMEOUT", 5*time.Second),
		},
		Metadata: MetadataConfig{
			Backend: strings.ToLower(getEnv("METADATA_BACKEND", "")),
			Table:   getEnv("METADATA_TABLE", "cache-metadata"),
			Timeout: getDurationEnv("METADATA_TIMEOUT", 2*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", ""),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	cfg.Metadata.Backend = resolveMetadataBackend(cfg)
	if cfg.Cache.LocalTTL < 0 {
		cfg.Cache.LocalTTL = 0
	}

	return cfg, nil
}

// resolveMetadataBackend picks the metadata tier. An explicit backend whose
// endpoint is missing falls back to none rather than failing startup.
func resolveMetadataBackend(cfg *Config) string {
	switch cfg.Metadata.Backend {
	case MetadataBackendRedis:
		if cfg.Redis.Host != "" {
			return MetadataBackendRedis
		}
		return MetadataBackendNone
	case MetadataBackendNATS:
		if cfg.NATS.URL != "" {
			return MetadataBackendNATS
		}
		return MetadataBackendNone
	case MetadataBackendNone:
		return MetadataBackendNone
	}
	if cfg.Redis.Host != "" {
		return MetadataBackendRedis
	}
	if cfg.NATS.URL != "" {
		return MetadataBackendNATS
	}
	return MetadataBackendNone
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
