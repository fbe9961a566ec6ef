package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	verifyCacheTTL = time.Hour
	// A lookup without a code can turn ambiguous as soon as another lot with
	// the same serial is generated, so it is kept for a shorter time.
	verifyCacheSerialOnlyTTL = 5 * time.Minute

	verifyVersionKey = "verify:version"
)

// VerifyCache stores public verification responses. Entries live under a
// generation number; Invalidate moves to the next one, which makes every
// earlier entry unreachable until its TTL removes it.
type VerifyCache interface {
	Get(ctx context.Context, serial int64, code string) ([]byte, bool)
	Set(ctx context.Context, serial int64, code string, value []byte)
	Invalidate(ctx context.Context)
}

type redisVerifyCache struct {
	rdb *redis.Client
}

// NewRedisVerifyCache returns nil when rdb is nil, which disables caching.
func NewRedisVerifyCache(rdb *redis.Client) VerifyCache {
	if rdb == nil {
		return nil
	}
	return &redisVerifyCache{rdb: rdb}
}

func verifyCacheKey(version int64, serial int64, code string) string {
	return fmt.Sprintf("verify:v%d:%d:%s", version, serial, code)
}

func verifyCacheTTLFor(code string) time.Duration {
	if code == "" {
		return verifyCacheSerialOnlyTTL
	}
	return verifyCacheTTL
}

// version reads the current generation. A missing key is generation 0.
func (c *redisVerifyCache) version(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, verifyVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *redisVerifyCache) Get(ctx context.Context, serial int64, code string) ([]byte, bool) {
	v, err := c.version(ctx)
	if err != nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, verifyCacheKey(v, serial, code)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *redisVerifyCache) Set(ctx context.Context, serial int64, code string, value []byte) {
	v, err := c.version(ctx)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, verifyCacheKey(v, serial, code), value, verifyCacheTTLFor(code)).Err()
}

func (c *redisVerifyCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, verifyVersionKey).Err(); err != nil {
		log.Warn().Err(err).Msg("verify cache: invalidate failed")
	}
}
