package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Badges    BadgesConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	AdminToken      string
}

// DatabaseConfig holds connection pool and migration settings.
type DatabaseConfig struct {
	URL                string `validate:"required"`
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	HealthWaitTimeout  time.Duration
}

// BadgesConfig holds the remote badge service settings. An empty endpoint or
// key means the integration is not configured: synchronization and issuance
// become no-ops rather than errors.
type BadgesConfig struct {
	APIEndpoint      string `validate:"omitempty,url"`
	APIKey           string
	Collections      string
	MaxRetryCount    int           `validate:"min=0"`
	RequestTimeout   time.Duration
	ImageTimeout     time.Duration
	SuccessStatusMin int `validate:"min=100,max=599"`
	SuccessStatusMax int `validate:"min=100,max=599"`
}

// CacheConfig holds cache provider settings.
type CacheConfig struct {
	Provider      string // "memory" or "redis"
	TTL           time.Duration
	RedisURL      string
	RedisDB       int
	RedisPassword string
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// SchedulerConfig holds the cadence of the background sweeps.
type SchedulerConfig struct {
	SyncInterval  time.Duration
	DrainInterval time.Duration
	Enabled       bool
}

// IsConfigured reports whether the remote badge service can be called at all.
func (b BadgesConfig) IsConfigured() bool {
	return b.APIEndpoint != "" && b.APIKey != ""
}

// CollectionIDs splits the configured comma-separated collection allow-list.
// An empty list means badges from all collections are mirrored.
func (b BadgesConfig) CollectionIDs() []string {
	if strings.TrimSpace(b.Collections) == "" {
		return nil
	}
	parts := strings.Split(b.Collections, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// Load reads configuration from the environment, with .env file support for
// non-production environments.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "9000"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Environment:     env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
			AdminToken:      getEnv("ADMIN_TOKEN", ""),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			MigrationsPath:     getEnv("MIGRATIONS_PATH", "migrations"),
			HealthWaitTimeout:  getDurationEnv("DB_HEALTH_WAIT_TIMEOUT", 30*time.Second),
		},
		Badges: BadgesConfig{
			APIEndpoint:      strings.TrimRight(getEnv("BADGES_API_ENDPOINT", ""), "/"),
			APIKey:           getEnv("BADGES_API_KEY", ""),
			Collections:      getEnv("BADGES_COLLECTIONS", ""),
			MaxRetryCount:    getIntEnv("BADGES_MAX_RETRY_COUNT", 3),
			RequestTimeout:   getDurationEnv("BADGES_REQUEST_TIMEOUT", 10*time.Second),
			ImageTimeout:     getDurationEnv("BADGES_IMAGE_TIMEOUT", 5*time.Second),
			SuccessStatusMin: getIntEnv("BADGES_SUCCESS_STATUS_MIN", 200),
			SuccessStatusMax: getIntEnv("BADGES_SUCCESS_STATUS_MAX", 209),
		},
		Cache: CacheConfig{
			Provider:      getEnv("CACHE_PROVIDER", "memory"),
			TTL:           getDurationEnv("CACHE_TTL", 5*time.Minute),
			RedisURL:      getEnv("REDIS_URL", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Scheduler: SchedulerConfig{
			SyncInterval:  getDurationEnv("SCHEDULER_SYNC_INTERVAL", time.Hour),
			DrainInterval: getDurationEnv("SCHEDULER_DRAIN_INTERVAL", 15*time.Minute),
			Enabled:       getBoolEnv("SCHEDULER_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks structural constraints on the loaded configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := v.Struct(c.Badges); err != nil {
		return fmt.Errorf("badges: %w", err)
	}
	if c.Badges.SuccessStatusMin > c.Badges.SuccessStatusMax {
		return fmt.Errorf("badges: success status range %d-%d is inverted",
			c.Badges.SuccessStatusMin, c.Badges.SuccessStatusMax)
	}
	if c.Cache.Provider != "memory" && c.Cache.Provider != "redis" {
		return fmt.Errorf("cache: unknown provider %q", c.Cache.Provider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
