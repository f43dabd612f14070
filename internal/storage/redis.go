package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis is a KV backend over a shared Redis instance, for host deployments
// where several processes serve the same user session. All keys are stored
// under a common prefix so one instance can serve multiple libraries.
type Redis struct {
	client *redis.Client
	prefix string
}

// RedisOptions carries connection settings for NewRedisWithOptions.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to addr and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr, prefix string) (*Redis, error) {
	return NewRedisWithOptions(ctx, RedisOptions{Addr: addr, Prefix: prefix})
}

// NewRedisWithOptions connects with full credentials and verifies the
// connection with a ping.
func NewRedisWithOptions(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis storage: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "settingsync"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.prefixed(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	err := r.client.Set(ctx, r.prefixed(key), value, 0).Err()
	if err != nil {
		// Redis signals maxmemory exhaustion as an OOM command rejection.
		if strings.Contains(err.Error(), "OOM") {
			return fmt.Errorf("set %q: %w", key, ErrQuotaExceeded)
		}
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefixed(key)).Err(); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Usage(ctx context.Context) (Usage, error) {
	var used int64
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		size, err := r.client.StrLen(ctx, key).Result()
		if err != nil {
			return Usage{}, fmt.Errorf("strlen %q: %w", key, err)
		}
		used += int64(len(key)) + size
	}
	if err := iter.Err(); err != nil {
		return Usage{}, fmt.Errorf("scan usage: %w", err)
	}
	return Usage{UsedBytes: used}, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) prefixed(key string) string {
	return r.prefix + ":" + key
}
