package gsc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/telemetry"
	"github.com/jonesrussell/rankrecon/internal/window"
)

// CacheConfig configures the Redis read-through cache.
type CacheConfig struct {
	TTL       time.Duration
	KeyPrefix string
	RowLimit  int
}

// Cache serves Query results from Redis, falling through to the wrapped
// Querier on a miss or a Redis failure. Sites is never cached.
type Cache struct {
	next    Querier
	rdb     *redis.Client
	cfg     CacheConfig
	log     logger.Logger
	metrics *telemetry.Metrics
}

var _ Querier = (*Cache)(nil)

// NewCache wraps next.
func NewCache(next Querier, rdb *redis.Client, cfg CacheConfig, log logger.Logger, metrics *telemetry.Metrics) *Cache {
	if log == nil {
		log = logger.NewNop()
	}
	return &Cache{next: next, rdb: rdb, cfg: cfg, log: log, metrics: metrics}
}

// Key is the cache key for a property, window and row limit.
func (c *Cache) Key(site string, w window.Window) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.cfg.KeyPrefix, site, w.Label(), strconv.Itoa(c.cfg.RowLimit))
}

// Sites delegates to the wrapped Querier.
func (c *Cache) Sites(ctx context.Context) ([]string, error) {
	return c.next.Sites(ctx)
}

// Query returns cached rows when present.
func (c *Cache) Query(ctx context.Context, site string, w window.Window) ([]Row, error) {
	key := c.Key(site, w)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rows []Row
		if jerr := json.Unmarshal(data, &rows); jerr == nil {
			c.metrics.RecordCacheLookup(true)
			return rows, nil
		}
		c.log.Warn("Discarding unreadable cache entry", logger.String("key", key))
	case errors.Is(err, redis.Nil):
		// miss
	default:
		c.log.Warn("GSC cache read failed", logger.String("key", key), logger.Error(err))
	}
	c.metrics.RecordCacheLookup(false)

	rows, err := c.next.Query(ctx, site, w)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(rows)
	if err != nil {
		return rows, nil
	}
	if err = c.rdb.Set(ctx, key, payload, c.cfg.TTL).Err(); err != nil {
		c.log.Warn("GSC cache write failed", logger.String("key", key), logger.Error(err))
	}
	return rows, nil
}
