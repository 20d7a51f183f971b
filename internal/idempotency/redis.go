// Package idempotency remembers which order an Idempotency-Key produced so a
// retried checkout does not place a second order.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingMarker = "pending"
	keyPrefix     = "zakup:idempotency:"
)

type RedisStore struct {
	client     redis.Cmdable
	pendingTTL time.Duration
	doneTTL    time.Duration
}

// NewRedisStore keeps in-flight claims for pendingTTL, long enough for one
// checkout, and completed keys for doneTTL.
func NewRedisStore(client redis.Cmdable, pendingTTL, doneTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		pendingTTL: pendingTTL,
		doneTTL:    doneTTL,
	}
}

// NewClient parses a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func (s *RedisStore) Begin(ctx context.Context, key string) (string, bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingMarker, s.pendingTTL).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		// Expired between SETNX and GET: let the caller retry.
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	if value == pendingMarker {
		return "", false, nil
	}
	return value, false, nil
}

func (s *RedisStore) Complete(ctx context.Context, key, orderID string) error {
	return s.client.Set(ctx, keyPrefix+key, orderID, s.doneTTL).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
