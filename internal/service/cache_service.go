package service

import (
	"context"
	"encoding/json"

	"fanarena/internal/domain"
	"fanarena/pkg/redis"

	"go.uber.org/zap"
)

// CacheService is the read-side cache for gated fight payloads, cache-aside
// over the document store. Entries are serialized AFTER the vote gate runs,
// so a cache hit can never leak a masked tally; the short TTL bounds how
// stale a reveal can be.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{redis: redisClient, logger: logger}
}

// GetFightsWithCache retrieves a division's gated fights with cache-aside
// and comprehensive error handling. Empty divisionID means all divisions.
func (c *CacheService) GetFightsWithCache(ctx context.Context, divisionID string, fallback func(ctx context.Context) ([]domain.DivisionFight, error)) ([]domain.DivisionFight, error) {
	cacheKey := c.fightsKey(divisionID)

	cached, err := c.redis.Get(ctx, cacheKey)
	if err == nil && cached != "" {
		var fights []domain.DivisionFight
		if unmarshalErr := json.Unmarshal([]byte(cached), &fights); unmarshalErr == nil {
			c.logger.Debug("Fight cache hit", zap.String("division_id", divisionID))
			return fights, nil
		} else {
			c.logger.Warn("Fight cache corrupted, falling back to store",
				zap.String("division_id", divisionID),
				zap.Error(unmarshalErr))
		}
	} else if err != nil && !redis.IsNil(err) {
		c.logger.Warn("Fight cache error, falling back to store",
			zap.String("division_id", divisionID),
			zap.Error(err))
	}

	c.logger.Debug("Fight cache miss", zap.String("division_id", divisionID))
	fights, err := fallback(ctx)
	if err != nil {
		return nil, err
	}

	if raw, marshalErr := json.Marshal(fights); marshalErr == nil {
		if setErr := c.redis.Set(ctx, cacheKey, raw, redis.TTLFights); setErr != nil {
			c.logger.Warn("Failed to cache fights", zap.Error(setErr))
		}
	}
	return fights, nil
}

// InvalidateFights drops the cached fight payloads touched by a write
func (c *CacheService) InvalidateFights(ctx context.Context, divisionID string) {
	keys := []string{
		c.fightsKey(""),
		c.redis.KeyBuilder.KeyOverview(),
	}
	if divisionID != "" {
		keys = append(keys, c.fightsKey(divisionID))
	}
	if err := c.redis.Delete(ctx, keys...); err != nil {
		c.logger.Warn("Failed to invalidate fight cache", zap.Error(err))
	}
}

func (c *CacheService) fightsKey(divisionID string) string {
	if divisionID == "" {
		return c.redis.KeyBuilder.KeyFightsAll()
	}
	return c.redis.KeyBuilder.KeyDivisionFights(divisionID)
}
