package install

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// ttl bounds how long a cached apt install outcome is trusted; OS images
// and mirrors drift, so cache hits are not permanent.
const ttl = 24 * time.Hour

// RedisCache is an optional install-result cache backed by
// github.com/redis/go-redis/v9. A cache miss or a disconnected Redis is
// never fatal — InstallOSPackages always falls back to attempting the
// install.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *RedisCache) Known(ctx context.Context, image, name string) (known, ok bool) {
	val, err := c.client.Get(ctx, cacheKey(image, name)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (c *RedisCache) Record(ctx context.Context, image, name string, succeeded bool) {
	val := "0"
	if succeeded {
		val = "1"
	}
	// Best-effort: a cache write failure never affects installation.
	_ = c.client.Set(ctx, cacheKey(image, name), val, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func cacheKey(image, name string) string {
	sum := sha256.Sum256([]byte(image + "\x00" + name))
	return "scriptbench:install:" + hex.EncodeToString(sum[:])
}
