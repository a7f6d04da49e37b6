package kvstore

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/notesearch/pkg/redis"
)

// Redis stores blobs as plain string values without expiry.
type Redis struct {
	client *redis.Client
}

var _ Store = (*Redis)(nil)

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, "kv:"+key)
	if redis.IsNilError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s from redis: %w", key, err)
	}
	return value, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, "kv:"+key, value, 0); err != nil {
		return fmt.Errorf("writing %s to redis: %w", key, err)
	}
	return nil
}

// Close is a no-op; the client is shared and closed by its owner.
func (r *Redis) Close() error { return nil }
