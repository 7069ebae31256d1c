package reports

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-reporter/pkg/logger"
	"github.com/selivandex/market-reporter/pkg/models"
)

const (
	latestKey = "mainreport:latest"
	idKeyFmt  = "mainreport:id:%d"
)

// Cache is a JSON key/value store with TTL (redis in production)
type Cache interface {
	Load(ctx context.Context, key string, dst any) (bool, error)
	Store(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CachedRepository adds a read-through cache for main reports.
// Cache failures are logged and fall through to the repository.
type CachedRepository struct {
	Repository
	cache Cache
	ttl   time.Duration
}

// NewCachedRepository wraps repo with cache
func NewCachedRepository(repo Repository, cache Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{Repository: repo, cache: cache, ttl: ttl}
}

func idKey(id int64) string {
	return fmt.Sprintf(idKeyFmt, id)
}

// SaveMainReport stores the report and refreshes both cache keys.
// If the latest key cannot be refreshed it is dropped so readers never see
// the previous report as the newest one.
func (c *CachedRepository) SaveMainReport(ctx context.Context, r *models.MainReport) error {
	if err := c.Repository.SaveMainReport(ctx, r); err != nil {
		return err
	}
	if !c.store(ctx, latestKey, r) {
		if err := c.cache.Delete(ctx, latestKey); err != nil {
			logger.Warn("failed to drop stale report cache", zap.String("key", latestKey), zap.Error(err))
		}
	}
	c.store(ctx, idKey(r.ID), r)
	return nil
}

// LatestMainReport serves the newest report from cache when possible
func (c *CachedRepository) LatestMainReport(ctx context.Context) (*models.MainReport, error) {
	var cached models.MainReport
	if c.load(ctx, latestKey, &cached) {
		return &cached, nil
	}

	r, err := c.Repository.LatestMainReport(ctx)
	if err != nil || r == nil {
		return r, err
	}
	c.store(ctx, latestKey, r)
	return r, nil
}

// GetMainReport serves a report by id from cache when possible
func (c *CachedRepository) GetMainReport(ctx context.Context, id int64) (*models.MainReport, error) {
	var cached models.MainReport
	if c.load(ctx, idKey(id), &cached) {
		return &cached, nil
	}

	r, err := c.Repository.GetMainReport(ctx, id)
	if err != nil || r == nil {
		return r, err
	}
	c.store(ctx, idKey(id), r)
	return r, nil
}

func (c *CachedRepository) load(ctx context.Context, key string, dst *models.MainReport) bool {
	ok, err := c.cache.Load(ctx, key, dst)
	if err != nil {
		logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return ok
}

func (c *CachedRepository) store(ctx context.Context, key string, r *models.MainReport) bool {
	if err := c.cache.Store(ctx, key, r, c.ttl); err != nil {
		logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
