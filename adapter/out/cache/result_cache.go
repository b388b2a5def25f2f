// Package cache adapts pkg/cache.RedisCache and the local filesystem onto
// the scoring and enhancement stages' outbound cache ports.
package cache

import (
	"context"
	"time"

	"benchscope/core/port/out"
	pkgcache "benchscope/pkg/cache"
)

const resultCacheTTL = 7 * 24 * time.Hour

// ResultCache implements out.ResultCache over Redis, keyed by the scorer's
// title+canonical-URL fingerprint.
type ResultCache struct {
	redis *pkgcache.RedisCache
}

func NewResultCache(redis *pkgcache.RedisCache) *ResultCache {
	return &ResultCache{redis: redis}
}

func (c *ResultCache) Get(ctx context.Context, fingerprint string) (out.ScoreResult, bool, error) {
	var result out.ScoreResult
	ok, err := c.redis.GetJSON(ctx, resultCacheKey(fingerprint), &result)
	if err != nil {
		return out.ScoreResult{}, false, err
	}
	return result, ok, nil
}

func (c *ResultCache) Set(ctx context.Context, fingerprint string, result out.ScoreResult) error {
	return c.redis.SetJSON(ctx, resultCacheKey(fingerprint), result, resultCacheTTL)
}

func resultCacheKey(fingerprint string) string {
	return "benchscope:score:" + fingerprint
}
