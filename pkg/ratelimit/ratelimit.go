// Package ratelimit bounds per-user request rates before the
// validation pipeline runs. The primary implementation counts actions
// in Redis; deployments without Redis fall back to the Postgres
// action log.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLimit is the per-user action budget per window.
const DefaultLimit = 10

// DefaultWindow is the rate-limit window.
const DefaultWindow = time.Minute

// Limiter is the contract the pipeline consumes: record the action
// and report whether it is still within budget.
type Limiter interface {
	CheckAndRecord(ctx context.Context, userID int64) (allowed bool, err error)
}

// RedisLimiter implements a fixed-window counter per user. INCR plus
// first-hit EXPIRE keeps it one round trip on the hot path.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewRedisLimiter builds a limiter over an existing Redis client.
// limit <= 0 and window <= 0 take the defaults.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{client: client, limit: int64(limit), window: window}
}

func (l *RedisLimiter) key(userID int64) string {
	return "ratelimit:" + strconv.FormatInt(userID, 10)
}

// CheckAndRecord counts this action and reports whether the user is
// within budget. Redis failure is surfaced; the caller decides whether
// to fail open (routing-grade) or closed.
func (l *RedisLimiter) CheckAndRecord(ctx context.Context, userID int64) (bool, error) {
	key := l.key(userID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit: incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}

	return count <= l.limit, nil
}

// Reset clears a user's counter. Used by tests and operator tooling.
func (l *RedisLimiter) Reset(ctx context.Context, userID int64) error {
	return l.client.Del(ctx, l.key(userID)).Err()
}

// actionCounter is the slice of the Postgres store the fallback
// limiter needs.
type actionCounter interface {
	RecordAction(ctx context.Context, userID int64) error
	CountRecentActions(ctx context.Context, userID int64, window time.Duration) (int, error)
}

// StoreLimiter counts actions in the persistent store. Slower than
// Redis but exact, and already durable for the audit trail.
type StoreLimiter struct {
	store  actionCounter
	limit  int
	window time.Duration
}

func NewStoreLimiter(store actionCounter, limit int, window time.Duration) *StoreLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &StoreLimiter{store: store, limit: limit, window: window}
}

func (l *StoreLimiter) CheckAndRecord(ctx context.Context, userID int64) (bool, error) {
	if err := l.store.RecordAction(ctx, userID); err != nil {
		return false, fmt.Errorf("ratelimit: record action: %w", err)
	}
	count, err := l.store.CountRecentActions(ctx, userID, l.window)
	if err != nil {
		return false, fmt.Errorf("ratelimit: count actions: %w", err)
	}
	return count <= l.limit, nil
}
