package kv

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a tagged cache: every key it owns is stored under tag, so
// Clear only touches that tag and leaves the rest of the instance alone.
type RedisStore struct {
	client *redis.Client
	tag    string
}

// NewRedisStore returns a store namespaced by tag, e.g. "svc:user:".
func NewRedisStore(client *redis.Client, tag string) *RedisStore {
	return &RedisStore{client: client, tag: tag}
}

func (r *RedisStore) key(k string) string {
	return r.tag + k
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Keys returns the keys under the tag, with the tag stripped.
func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	raw, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, r.tag))
	}
	return keys, nil
}

// Clear deletes every key under the tag.
func (r *RedisStore) Clear(ctx context.Context) error {
	raw, err := r.scan(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return r.client.Del(ctx, raw...).Err()
}

func (r *RedisStore) scan(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		out    []string
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.tag+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
