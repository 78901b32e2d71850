package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Queue backends
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Queue     QueueConfig
	Telemetry TelemetryConfig
	Raffle    RaffleConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string `env:"SERVICE_NAME"`
	Port        int    `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"` // text for development, json in production
}

// DatabaseConfig holds participant store settings
type DatabaseConfig struct {
	Driver      string        `env:"STORE_DRIVER" envDefault:"postgres"`
	Host        string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port        int           `env:"POSTGRES_PORT" envDefault:"5432"`
	Database    string        `env:"POSTGRES_DB" envDefault:"raffle"`
	User        string        `env:"POSTGRES_USER" envDefault:"raffle"`
	Password    string        `env:"POSTGRES_PASSWORD" envDefault:"raffle"`
	Schema      string        `env:"POSTGRES_SCHEMA"` // empty uses the server's search_path
	MaxConns    int           `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns    int           `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	MaxIdleTime time.Duration `env:"POSTGRES_MAX_IDLE_TIME" envDefault:"30m"`
	MaxLifetime time.Duration `env:"POSTGRES_MAX_LIFETIME" envDefault:"1h"`
	SQLitePath  string        `env:"SQLITE_PATH" envDefault:"raffle.db"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool          `env:"CACHE_ENABLED" envDefault:"true"`
	DefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"5m"`
}

// QueueConfig holds message queue settings
type QueueConfig struct {
	Type   string `env:"QUEUE_TYPE" envDefault:"memory"`
	Buffer int    `env:"QUEUE_BUFFER" envDefault:"1000"`
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool `env:"ENABLE_PPROF" envDefault:"false"`
	PprofPort   int  `env:"PPROF_PORT" envDefault:"6060"`
}

// RaffleConfig holds assignment generation settings
type RaffleConfig struct {
	// Seed fixes the shuffle source; 0 draws a fresh seed from crypto/rand.
	Seed    uint64        `env:"RAFFLE_SEED" envDefault:"0"`
	LockTTL time.Duration `env:"RAFFLE_LOCK_TTL" envDefault:"30s"`
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = serviceName
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Database.Driver)
	}

	switch c.Queue.Type {
	case QueueMemory:
		if c.Queue.Buffer < 1 {
			return fmt.Errorf("queue buffer must be positive")
		}
	case QueueRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("redis queue requires REDIS_ENABLED")
		}
	default:
		return fmt.Errorf("unknown queue type: %s", c.Queue.Type)
	}

	if c.Raffle.LockTTL <= 0 {
		return fmt.Errorf("raffle lock ttl must be positive")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
	if c.Database.Schema != "" {
		dsn += "&search_path=" + url.QueryEscape(c.Database.Schema)
	}
	return dsn
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
