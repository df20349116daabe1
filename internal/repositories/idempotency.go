package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bankguard/bankguard/internal/logger"
)

// CachedResponse is a previously returned response stored under an
// Idempotency-Key header value.
type CachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyRepository caches responses of mutating requests in Redis so
// a retried request with the same key replays the original outcome
// instead of re-executing the financial operation.
type IdempotencyRepository struct {
	client *redis.Client
	exp    time.Duration
}

func NewIdempotencyRepository(client *redis.Client, expiration time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{client: client, exp: expiration}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// Get returns the cached response for a key, or nil on a miss.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*CachedResponse, error) {
	val, err := r.client.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		logger.Log.Errorw("idempotency cache read failed", "key", key, "error", err)
		return nil, err
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		logger.Log.Errorw("idempotency cache entry corrupt", "key", key, "error", err)
		return nil, err
	}

	logger.Log.Infow("idempotency cache hit", "key", key, "status", cached.Status)
	return &cached, nil
}

// Set stores a response under a key with the configured TTL.
func (r *IdempotencyRepository) Set(ctx context.Context, key string, status int, body []byte) error {
	data, err := json.Marshal(CachedResponse{Status: status, Body: body})
	if err != nil {
		return err
	}

	err = r.client.Set(ctx, idempotencyKey(key), data, r.exp).Err()

	logger.Log.Infow("idempotency cache write",
		"key", key,
		"status", status,
		"error", err,
	)

	return err
}
