package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const idempotencyLockTTL = 30 * time.Second

// IdempotencyGuard keeps two requests carrying the same key from running at
// the same time. The durable record of a completed request is the key stored
// on the Payment row; the guard only covers the in-flight window.
type IdempotencyGuard struct {
	cache Cache
	log   *zap.Logger
}

func NewIdempotencyGuard(cache Cache, log *zap.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{cache: cache, log: log}
}

// NormalizeIdempotencyKey trims the key and rejects oversized values
func NormalizeIdempotencyKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if len(key) > 100 {
		return "", invalid("idempotency key longer than 100 characters")
	}
	return key, nil
}

// Acquire takes the in-flight lock for key. The returned release func is
// always safe to call. An empty key or a nil cache is a no-op.
func (g *IdempotencyGuard) Acquire(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if key == "" || g == nil || g.cache == nil {
		return noop, nil
	}

	lockKey := "idempotency:" + key
	ok, err := g.cache.SetNX(ctx, lockKey, time.Now().Unix(), idempotencyLockTTL)
	if err != nil {
		// fall back to the unique idempotency_key column
		g.log.Warn("idempotency lock unavailable", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	if !ok {
		return noop, fmt.Errorf("request with idempotency key %q already in progress: %w", key, ErrConflictRetry)
	}

	return func() {
		if err := g.cache.Delete(context.Background(), lockKey); err != nil {
			g.log.Warn("failed to release idempotency lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
