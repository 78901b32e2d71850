package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/lyzr/raffle/common/cache"
	"github.com/lyzr/raffle/common/config"
	"github.com/lyzr/raffle/common/db"
	"github.com/lyzr/raffle/common/lock"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/queue"
	"github.com/lyzr/raffle/common/random"
	"github.com/lyzr/raffle/common/redis"
	"github.com/lyzr/raffle/common/repository"
	"github.com/lyzr/raffle/common/telemetry"
	goredis "github.com/redis/go-redis/v9"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}
	log := components.Logger

	log.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
	)

	fail := func(err error) (*Components, error) {
		_ = components.Shutdown(ctx)
		return nil, err
	}

	// 3. Open the participant store
	if !options.skipStore {
		components.Store, err = openStore(ctx, cfg, log)
		if err != nil {
			return fail(err)
		}

		components.addCleanup(func() error {
			components.Store.Close()
			return nil
		})

		if options.storeInitHook != nil {
			log.Info("running store init hook")
			if err := options.storeInitHook(components.Store); err != nil {
				return fail(fmt.Errorf("store init hook failed: %w", err))
			}
		}
	}

	// 4. Connect Redis
	if !options.skipRedis && cfg.Redis.Enabled {
		log.Info("connecting to redis", "addr", cfg.RedisAddr())
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		components.Redis = redis.NewClient(rdb, log)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := components.Redis.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = rdb.Close()
			components.Redis = nil
			return fail(fmt.Errorf("failed to connect to redis: %w", err))
		}

		components.addCleanup(func() error {
			log.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Generation lock and shuffle source
	if components.Redis != nil {
		components.Locker = lock.NewRedisLocker(components.Redis, log)
	} else {
		components.Locker = lock.NewLocalLocker()
	}

	components.Shuffler, err = random.New(cfg.Raffle.Seed)
	if err != nil {
		return fail(fmt.Errorf("failed to seed shuffler: %w", err))
	}
	if cfg.Raffle.Seed != 0 {
		log.Warn("raffle seed is fixed, draws are reproducible", "seed", cfg.Raffle.Seed)
	}

	// 6. Initialize queue
	if !options.skipQueue {
		log.Info("initializing queue", "type", cfg.Queue.Type)

		switch cfg.Queue.Type {
		case config.QueueMemory:
			components.Queue = queue.NewMemoryQueue(cfg.Queue.Buffer, log)
		case config.QueueRedis:
			if components.Redis == nil {
				return fail(fmt.Errorf("redis queue requires a redis connection"))
			}
			components.Queue = queue.NewRedisQueue(components.Redis, log)
		default:
			return fail(fmt.Errorf("unknown queue type: %s", cfg.Queue.Type))
		}

		components.addCleanup(func() error {
			log.Info("closing queue")
			return components.Queue.Close()
		})
	}

	// 7. Initialize cache
	if !options.skipCache && cfg.Cache.Enabled {
		components.Cache = newCache(cfg, components.Redis, log)
		if components.Cache != nil {
			components.addCleanup(func() error {
				log.Info("closing cache")
				return components.Cache.Close()
			})
		}
	}

	// 8. Initialize telemetry
	if !options.skipTelemetry && cfg.Telemetry.EnablePprof {
		log.Info("initializing telemetry")
		components.Telemetry = telemetry.New(cfg.Telemetry.PprofPort, log)

		if err := components.Telemetry.Start(ctx); err != nil {
			log.Warn("failed to start telemetry", "error", err)
		}

		components.addCleanup(func() error {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return components.Telemetry.Stop(stopCtx)
		})
	}

	log.Info("service initialization complete",
		"service", serviceName,
		"store", cfg.Database.Driver,
		"redis", components.Redis != nil,
		"queue", components.Queue != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// newCache picks the cache backend. Without Redis only a SQLite store gets
// an in-process cache: a Postgres store may be shared by instances that
// never see each other's invalidations.
func newCache(cfg *config.Config, rdb *redis.Client, log *logger.Logger) cache.Cache {
	switch {
	case rdb != nil:
		log.Info("initializing cache", "type", "redis", "ttl", cfg.Cache.DefaultTTL)
		return cache.NewRedisCache(rdb)
	case cfg.Database.Driver == config.DriverSQLite:
		log.Info("initializing cache", "type", "memory", "ttl", cfg.Cache.DefaultTTL)
		return cache.NewMemoryCache(log)
	default:
		log.Warn("assignment cache disabled, shared store needs REDIS_ENABLED", "store", cfg.Database.Driver)
		return nil
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.ParticipantStore, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		log.Info("connecting to database", "driver", cfg.Database.Driver)
		database, err := db.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return repository.NewPostgresParticipantRepository(database), nil

	case config.DriverSQLite:
		log.Info("opening database", "driver", cfg.Database.Driver, "path", cfg.Database.SQLitePath)
		database, err := db.OpenSQLite(ctx, cfg.Database.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return repository.NewSQLiteParticipantRepository(database), nil

	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Database.Driver)
	}
}
