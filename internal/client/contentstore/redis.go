package contentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/melonmail/internal/client/models"
	"github.com/dmitrijs2005/melonmail/internal/logging"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "melonmail:blob:"

// RedisCache decorates a Gateway with a read-through Redis cache. Objects
// are immutable, so entries are only ever evicted by TTL. Cache failures are
// logged and never fail a request. An entry that does not hash to its key
// is treated as a miss and overwritten from the backend.
type RedisCache struct {
	next   Gateway
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logging.Logger
}

// NewRedisClient returns a go-redis client with short timeouts.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// NewRedisCache wraps next; entries written by it expire after ttl.
func NewRedisCache(next Gateway, rdb redis.Cmdable, ttl time.Duration, l logging.Logger) *RedisCache {
	return &RedisCache{next: next, rdb: rdb, ttl: ttl, logger: l.With("module", "content_cache")}
}

func (c *RedisCache) cached(ctx context.Context, hash string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, cacheKeyPrefix+hash).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn(ctx, "cache read failed", "hash", hash, "error", err)
		}
		return nil, false
	}
	if !Matches(hash, b) {
		c.logger.Warn(ctx, "cache entry does not match its hash", "hash", hash)
		return nil, false
	}
	c.logger.Debug(ctx, "cache hit", "hash", hash)
	return b, true
}

func (c *RedisCache) store(ctx context.Context, hash string, data []byte) {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+hash, data, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "cache write failed", "hash", hash, "error", err)
	}
}

func (c *RedisCache) GetFileContent(ctx context.Context, hash string) ([]byte, error) {
	if b, ok := c.cached(ctx, hash); ok {
		return b, nil
	}
	b, err := c.next.GetFileContent(ctx, hash)
	if err != nil {
		return nil, err
	}
	c.store(ctx, hash, b)
	return b, nil
}

func (c *RedisCache) GetThread(ctx context.Context, hash string) (models.ThreadManifest, error) {
	if b, ok := c.cached(ctx, hash); ok {
		if m, err := models.ParseManifest(b); err == nil {
			return m, nil
		}
	}
	m, err := c.next.GetThread(ctx, hash)
	if err != nil {
		return models.ThreadManifest{}, err
	}
	if raw, err := m.Marshal(); err == nil && Matches(hash, raw) {
		c.store(ctx, hash, raw)
	}
	return m, nil
}

func (c *RedisCache) UploadMail(ctx context.Context, env *models.Envelope) (models.UploadResult, error) {
	return c.next.UploadMail(ctx, env)
}

func (c *RedisCache) NewThread(ctx context.Context, link models.Link) (models.Link, error) {
	return c.next.NewThread(ctx, link)
}

func (c *RedisCache) ReplyToThread(ctx context.Context, link models.Link, threadHash string) (models.Link, error) {
	return c.next.ReplyToThread(ctx, link, threadHash)
}
