package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/utils"
)

// KV is the key-value surface the cleaning cache needs. It is deliberately
// tiny so tests can substitute an in-memory fake and so callers can treat
// the whole store as optional.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

type kv struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewKV connects to redis at REDIS_ADDR and verifies the connection with a
// bounded ping. Callers are expected to treat a constructor failure as
// "run without a cache", not as fatal.
func NewKV(log *logger.Logger) (KV, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "localhost:6379", log))

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &kv{
		log: log.With("service", "RedisKV"),
		rdb: rdb,
	}, nil
}

func (k *kv) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := k.rdb.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (k *kv) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return k.rdb.Set(ctx, key, value, ttl).Err()
}

func (k *kv) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return k.rdb.Del(ctx, keys...).Err()
}

func (k *kv) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := k.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (k *kv) Close() error {
	return k.rdb.Close()
}
