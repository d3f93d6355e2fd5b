package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/phoenix/internal/session"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "phoenix:session:"

// RedisStore keeps the document under a single key with no expiry.
type RedisStore struct {
	client *redis.Client
	key    string
}

func OpenRedis(ctx context.Context, url, name string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{client: client, key: redisKeyPrefix + name}, nil
}

func (r *RedisStore) Key() string { return r.key }

func (r *RedisStore) Load(ctx context.Context) (*session.Document, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %q: %w", r.key, err)
	}
	return decode(data, "redis:"+r.key)
}

func (r *RedisStore) Save(ctx context.Context, doc *session.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("saving session %q: %w", r.key, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
