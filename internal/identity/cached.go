package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"headshot/internal/domain"
)

// PlanCache is the subset of the Redis client used for plan-membership caching.
type PlanCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedDirectory caches HasPlan answers in Redis. Plan lookups are the only
// calls made several times per request (one per alias); metadata is always
// read through so the usage counter stays authoritative.
type CachedDirectory struct {
	next   Directory
	cache  PlanCache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedDirectory(next Directory, cache PlanCache, ttl time.Duration, logger zerolog.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedDirectory{next: next, cache: cache, ttl: ttl, logger: logger}
}

func planCacheKey(id, planKey string) string {
	return fmt.Sprintf("headshot:plan:%s:%s", id, planKey)
}

func (d *CachedDirectory) IsSignedIn(ctx context.Context, id string) (bool, error) {
	return d.next.IsSignedIn(ctx, id)
}

func (d *CachedDirectory) HasPlan(ctx context.Context, id, planKey string) (bool, error) {
	key := planCacheKey(id, planKey)
	val, err := d.cache.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case !errors.Is(err, redis.Nil):
		d.logger.Warn().Err(err).Str("identity", id).Msg("plan cache read failed")
	}

	has, err := d.next.HasPlan(ctx, id, planKey)
	if err != nil {
		return false, err
	}
	flag := "0"
	if has {
		flag = "1"
	}
	if err := d.cache.Set(ctx, key, flag, d.ttl).Err(); err != nil {
		d.logger.Warn().Err(err).Str("identity", id).Msg("plan cache write failed")
	}
	return has, nil
}

// Invalidate drops cached plan answers for the given keys, e.g. after a
// billing change.
func (d *CachedDirectory) Invalidate(ctx context.Context, id string, planKeys ...string) error {
	if len(planKeys) == 0 {
		return nil
	}
	keys := make([]string, len(planKeys))
	for i, planKey := range planKeys {
		keys[i] = planCacheKey(id, planKey)
	}
	return d.cache.Del(ctx, keys...).Err()
}

func (d *CachedDirectory) Metadata(ctx context.Context, id string) (domain.Metadata, error) {
	return d.next.Metadata(ctx, id)
}

func (d *CachedDirectory) UpdateMetadata(ctx context.Context, id string, md domain.Metadata) (domain.Metadata, error) {
	return d.next.UpdateMetadata(ctx, id, md)
}

var _ Directory = (*CachedDirectory)(nil)
