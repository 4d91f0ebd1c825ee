package persistence

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// RedisBackend keeps the document as a plain string value under one key.
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	return &RedisBackend{
		client: client,
		key:    key,
	}
}

func (b *RedisBackend) Name() string {
	return "redis"
}

func (b *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	doc, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *RedisBackend) Write(ctx context.Context, doc []byte) error {
	return b.client.Set(ctx, b.key, doc, 0).Err()
}
