package locations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fm_servicios_backend/platform/logger"
	"fm_servicios_backend/platform/slug"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "locations:"

// CachedCatalog is a Redis read-through cache in front of another catalog.
// Concurrent misses for the same key are collapsed into one load. Redis
// failures degrade to reading the underlying catalog.
type CachedCatalog struct {
	next  Catalog
	rdb   *redis.Client
	ttl   time.Duration
	log   *logger.Logger
	group singleflight.Group
}

func NewCachedCatalog(next Catalog, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedCatalog {
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedCatalog) Regions(ctx context.Context) ([]string, error) {
	return c.load(ctx, cacheKeyPrefix+"regions", func() ([]string, error) {
		return c.next.Regions(ctx)
	})
}

func (c *CachedCatalog) Comunas(ctx context.Context, region string) ([]string, error) {
	return c.load(ctx, cacheKeyPrefix+"comunas:"+slug.Fold(region), func() ([]string, error) {
		return c.next.Comunas(ctx, region)
	})
}

// Invalidate drops every cached entry, e.g. after the tables are edited.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, cacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *CachedCatalog) load(ctx context.Context, key string, fetch func() ([]string, error)) ([]string, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var names []string
		if jsonErr := json.Unmarshal(raw, &names); jsonErr == nil {
			return names, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("location cache read failed", "key", key, "error", err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		names, err := fetch()
		if err != nil {
			return nil, err
		}
		if payload, jsonErr := json.Marshal(names); jsonErr == nil {
			if setErr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
				c.log.Warn("location cache write failed", "key", key, "error", setErr)
			}
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

var _ Catalog = (*CachedCatalog)(nil)
