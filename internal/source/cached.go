package source

import (
	"context"
	"time"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/logger"
	"github.com/wonny/quadrant/pkg/redis"
)

// Cached keeps successful observations in Redis for ttl
// Failures are never cached.
type Cached struct {
	inner  contracts.DataSource
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCached wraps inner with cache. A disabled cache makes this a pass-through.
func NewCached(inner contracts.DataSource, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *Cached {
	if ttl <= 0 {
		ttl = redis.TTLMedium
	}
	return &Cached{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// Name implements contracts.DataSource
func (c *Cached) Name() string { return c.inner.Name() }

// Fetch implements contracts.DataSource
func (c *Cached) Fetch(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
	key := redis.ObservationKey(c.inner.Name(), symbol)

	var hit contracts.RawObservation
	found, err := c.cache.Get(ctx, key, &hit)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Warn("Observation cache read failed")
	}
	if found {
		return &hit, nil
	}

	obs, err := c.inner.Fetch(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if obs != nil {
		if err := c.cache.Set(ctx, key, obs, c.ttl); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Warn("Observation cache write failed")
		}
	}
	return obs, nil
}
