package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "progress:"

// RedisStore keeps progress records as JSON strings with an expiry, so every
// API instance and worker sees the same job state.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Set(ctx context.Context, p Progress) error {
	if p.JobID == "" {
		return errors.New("progress: empty job id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("progress: marshal: %w", err)
	}
	return s.rdb.Set(ctx, keyPrefix+p.JobID, data, s.ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*Progress, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("progress: decode %s: %w", jobID, err)
	}
	return &p, nil
}

func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	return s.rdb.Del(ctx, keyPrefix+jobID).Err()
}

// List walks the keyspace with SCAN; records that expire mid-scan are skipped.
func (s *RedisStore) List(ctx context.Context) ([]Progress, error) {
	var out []Progress
	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		p, err := s.Get(ctx, iter.Val()[len(keyPrefix):])
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, iter.Err()
}
