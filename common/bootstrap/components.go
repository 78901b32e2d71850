package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/raffle/common/cache"
	"github.com/lyzr/raffle/common/config"
	"github.com/lyzr/raffle/common/lock"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/queue"
	"github.com/lyzr/raffle/common/random"
	"github.com/lyzr/raffle/common/redis"
	"github.com/lyzr/raffle/common/repository"
	"github.com/lyzr/raffle/common/telemetry"
)

// Components holds all initialized service dependencies
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	Store     repository.ParticipantStore
	Redis     *redis.Client
	Locker    lock.Locker
	Shuffler  random.Shuffler
	Queue     queue.Queue
	Cache     cache.Cache
	Telemetry *telemetry.Telemetry

	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error

	// LIFO
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks the store and Redis. The returned map names every
// unhealthy component.
func (c *Components) Health(ctx context.Context) map[string]error {
	failures := make(map[string]error)

	if c.Store != nil {
		if err := c.Store.Health(ctx); err != nil {
			failures["store"] = err
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			failures["redis"] = err
		}
	}

	return failures
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
