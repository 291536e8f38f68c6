// internal/storage/kv/redis.go
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newthinker/signaldeck/internal/core"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStorage stores keys as plain Redis strings under a prefix.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("redis ping: %w", err))
	}

	return NewRedisFromClient(client, cfg.Prefix), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

func (r *RedisStorage) wrapKey(key string) string {
	return r.prefix + key
}

func (r *RedisStorage) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.wrapKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return data, nil
}

func (r *RedisStorage) Write(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.wrapKey(key), data, 0).Err(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.wrapKey(key)).Err(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

func (r *RedisStorage) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.wrapKey(key)).Result()
	if err != nil {
		return false, core.WrapError(core.ErrStorageFailed, err)
	}
	return n > 0, nil
}

// Close closes the Redis connection.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}
