/**
 * @description
 * Redis read-through cache in front of the ocr_data queries.
 * Lets several API replicas and the worker share one copy of the snapshot list.
 *
 * @dependencies
 * - github.com/redis/go-redis/v9
 * - github.com/bytedance/sonic
 *
 * @notes
 * - Redis problems never fail a read; they are logged and the source is queried directly.
 * - An empty latest snapshot is cached as "null" so an empty table is not re-queried.
 * - RefreshHistory and RefreshLatest always hit the source; manual refetches use them.
 */

package services

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sol-erda/tracker/internal/logger"
	"github.com/sol-erda/tracker/internal/models"
)

const (
	CacheKeyHistory = "ocr:history"
	CacheKeyLatest  = "ocr:latest"
)

// SnapshotCache decorates a SnapshotSource with Redis caching
type SnapshotCache struct {
	Source SnapshotSource
	Redis  *redis.Client
	TTL    time.Duration
}

func NewSnapshotCache(source SnapshotSource, rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		Source: source,
		Redis:  rdb,
		TTL:    ttl,
	}
}

// FetchHistory returns the cached history, falling back to the source
func (c *SnapshotCache) FetchHistory(ctx context.Context) ([]models.OcrSnapshot, error) {
	var cached []models.OcrSnapshot
	if c.load(ctx, CacheKeyHistory, &cached) {
		return cached, nil
	}

	rows, err := c.Source.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, CacheKeyHistory, rows)
	return rows, nil
}

// FetchLatest returns the cached newest snapshot, falling back to the source
func (c *SnapshotCache) FetchLatest(ctx context.Context) (*models.OcrSnapshot, error) {
	var cached *models.OcrSnapshot
	if c.load(ctx, CacheKeyLatest, &cached) {
		return cached, nil
	}

	latest, err := c.Source.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, CacheKeyLatest, latest)
	return latest, nil
}

// RefreshHistory re-reads the history from the source and rewrites its key
func (c *SnapshotCache) RefreshHistory(ctx context.Context) ([]models.OcrSnapshot, error) {
	rows, err := c.Source.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, CacheKeyHistory, rows)
	return rows, nil
}

// RefreshLatest re-reads the newest snapshot from the source and rewrites its key
func (c *SnapshotCache) RefreshLatest(ctx context.Context) (*models.OcrSnapshot, error) {
	latest, err := c.Source.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, CacheKeyLatest, latest)
	return latest, nil
}

// Refresh bypasses the cache, re-reads the source and rewrites both keys.
// It returns the newest snapshot of the fresh history.
func (c *SnapshotCache) Refresh(ctx context.Context) (*models.OcrSnapshot, error) {
	rows, err := c.Source.FetchHistory(ctx)
	if err != nil {
		return nil, err
	}

	var latest *models.OcrSnapshot
	if len(rows) > 0 {
		latest = &rows[0]
	}

	c.store(ctx, CacheKeyHistory, rows)
	c.store(ctx, CacheKeyLatest, latest)
	return latest, nil
}

func (c *SnapshotCache) load(ctx context.Context, key string, dst interface{}) bool {
	if c.Redis == nil {
		return false
	}

	val, err := c.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("SnapshotCache: get %s failed: %v", key, err)
		}
		return false
	}

	if err := sonic.Unmarshal(val, dst); err != nil {
		logger.Warn("SnapshotCache: corrupt entry %s: %v", key, err)
		return false
	}
	return true
}

func (c *SnapshotCache) store(ctx context.Context, key string, value interface{}) {
	if c.Redis == nil {
		return
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		logger.Error("SnapshotCache: failed to marshal %s: %v", key, err)
		return
	}
	if err := c.Redis.Set(ctx, key, data, c.TTL).Err(); err != nil {
		logger.Warn("SnapshotCache: set %s failed: %v", key, err)
	}
}
