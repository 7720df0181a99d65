package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"
	"snapscreen/internal/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore is a Redis read-through cache for scan details. Listings always
// go to the underlying store. Redis failures are logged and never fail a call.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *errors.Logger
}

// NewCachedStore wraps inner with a Redis cache.
func NewCachedStore(inner Store, cfg config.CacheConfig, logger *errors.Logger) *CachedStore {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
	})
	return newCachedStore(inner, client, cfg.TTL, cfg.KeyPrefix, logger)
}

func newCachedStore(inner Store, client *redis.Client, ttl time.Duration, prefix string, logger *errors.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *CachedStore) key(id string) string {
	return c.prefix + "scan:" + id
}

func (c *CachedStore) List(ctx context.Context, filter string) ([]types.ScanSummary, error) {
	return c.inner.List(ctx, filter)
}

func (c *CachedStore) Get(ctx context.Context, id string) (*types.ScanDetail, error) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var d types.ScanDetail
		if jsonErr := json.Unmarshal(raw, &d); jsonErr == nil {
			c.logger.Debug("Scan cache hit", "scan_id", id)
			return &d, nil
		}
		c.logger.Warn("Discarding undecodable cache entry", "scan_id", id)
	case !stderrors.Is(err, redis.Nil):
		c.logger.Warn("Scan cache unavailable", "scan_id", id, "error", err.Error())
	}

	d, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, d)
	return d, nil
}

func (c *CachedStore) Save(ctx context.Context, detail *types.ScanDetail) error {
	if err := c.inner.Save(ctx, detail); err != nil {
		return err
	}
	c.evict(ctx, detail.ID)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedStore) Close() error {
	cacheErr := c.client.Close()
	if err := c.inner.Close(); err != nil {
		return err
	}
	return cacheErr
}

func (c *CachedStore) store(ctx context.Context, d *types.ScanDetail) {
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(d.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("Failed to populate scan cache", "scan_id", d.ID, "error", err.Error())
	}
}

func (c *CachedStore) evict(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		c.logger.Warn("Failed to evict scan from cache", "scan_id", id, "error", err.Error())
	}
}
