package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	fieldValue   = "value"
	fieldUpdated = "updated_at"

	DefaultTTL = 48 * time.Hour
)

// RedisStore keeps each entry in a hash holding the value and its write time.
// Entries expire after ttl; zero disables expiry.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With(slog.String("component", "cache"), slog.String("backend", "redis")),
	}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.rdb.HGet(ctx, s.key(key), fieldValue).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := decode(key, raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value any, policy WritePolicy) error {
	raw, err := Encode(value)
	if err != nil {
		return err
	}
	k := s.key(key)
	if policy == SkipIfUnchanged {
		existing, err := s.rdb.HGet(ctx, k, fieldValue).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("cache: get %s: %w", key, err)
		}
		if err == nil && existing == string(raw) {
			s.logger.DebugContext(ctx, "cache value unchanged", slog.String("key", key))
			return nil
		}
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldValue, raw, fieldUpdated, s.now().UTC().Format(time.RFC3339Nano))
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "cache set", slog.String("key", key), slog.String("policy", policy.String()))
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("cache: delete %s: %w", key, err)
	}
	s.logger.InfoContext(ctx, "cache delete", slog.String("key", key))
	return nil
}

func (s *RedisStore) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := s.rdb.HGet(ctx, s.key(key), fieldUpdated).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cache: bad timestamp for %s: %w", key, err)
	}
	return t, true, nil
}
