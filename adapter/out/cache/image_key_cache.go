package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	pkgcache "benchscope/pkg/cache"
)

const imageKeyCacheTTL = 30 * 24 * time.Hour

type imageKeyEntry struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ImageKeyCache implements out.ImageKeyCache over Redis, keyed by arxiv id.
type ImageKeyCache struct {
	redis *pkgcache.RedisCache
}

func NewImageKeyCache(redis *pkgcache.RedisCache) *ImageKeyCache {
	return &ImageKeyCache{redis: redis}
}

func (c *ImageKeyCache) Get(ctx context.Context, arxivID string) (string, string, bool, error) {
	var entry imageKeyEntry
	ok, err := c.redis.GetJSON(ctx, imageKeyCacheKey(arxivID), &entry)
	if err == redis.Nil {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return entry.Key, entry.URL, ok, nil
}

func (c *ImageKeyCache) Set(ctx context.Context, arxivID, key, url string) error {
	return c.redis.SetJSON(ctx, imageKeyCacheKey(arxivID), imageKeyEntry{Key: key, URL: url}, imageKeyCacheTTL)
}

func imageKeyCacheKey(arxivID string) string {
	return "benchscope:image:" + arxivID
}
