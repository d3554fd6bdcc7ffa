// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/opsdash/internal/platform/constants"
)

// Field names of the per-email attempt hash.
const (
	hashAttempts     = "attempts"
	hashLockedUntil  = "locked_until"
)

// recordFailure updates the attempt hash atomically. Times are unix milliseconds
// supplied by the caller so the limiter keeps a single clock.
var recordFailure = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local lockout = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local first = tonumber(redis.call('HGET', key, 'first_attempt') or '0')
local attempts = tonumber(redis.call('HGET', key, 'attempts') or '0')

if first == 0 or (now - first) > window then
  attempts = 1
  first = now
  redis.call('DEL', key)
else
  attempts = attempts + 1
end

redis.call('HSET', key, 'attempts', attempts, 'first_attempt', first)
if attempts >= max then
  redis.call('HSET', key, 'locked_until', now + lockout)
end
redis.call('PEXPIRE', key, ttl)
return attempts
`)

// RedisLimiter shares counters between API instances through one Redis hash per email.
type RedisLimiter struct {
	client redis.UniversalClient
	policy Policy
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed [Limiter].
func NewRedisLimiter(client redis.UniversalClient, policy Policy) *RedisLimiter {
	return &RedisLimiter{client: client, policy: policy, now: time.Now}
}

func (limiter *RedisLimiter) key(email string) string {
	return constants.RedisPrefixLoginAttempt + LimiterKey(email)
}

// IsLockedOut reports whether email is locked. An expired lock deletes the hash.
func (limiter *RedisLimiter) IsLockedOut(ctx context.Context, email string) (bool, error) {
	key := limiter.key(email)

	lockedUntil, err := limiter.lockedUntil(ctx, key)
	if err != nil || lockedUntil.IsZero() {
		return false, err
	}

	if limiter.now().Before(lockedUntil) {
		return true, nil
	}

	if err := limiter.client.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("redis_limiter_clear_failed: %w", err)
	}
	return false, nil
}

// RecordFailedAttempt runs the counting script for email.
func (limiter *RedisLimiter) RecordFailedAttempt(ctx context.Context, email string) error {
	ttl := limiter.policy.Window + limiter.policy.Lockout

	err := recordFailure.Run(ctx, limiter.client, []string{limiter.key(email)},
		limiter.now().UnixMilli(),
		limiter.policy.Window.Milliseconds(),
		limiter.policy.MaxAttempts,
		limiter.policy.Lockout.Milliseconds(),
		ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis_limiter_record_failed: %w", err)
	}
	return nil
}

// RecordSuccessfulLogin deletes the hash for email.
func (limiter *RedisLimiter) RecordSuccessfulLogin(ctx context.Context, email string) error {
	if err := limiter.client.Del(ctx, limiter.key(email)).Err(); err != nil {
		return fmt.Errorf("redis_limiter_clear_failed: %w", err)
	}
	return nil
}

// RemainingAttempts returns the failures left before a lockout, 0 while locked.
func (limiter *RedisLimiter) RemainingAttempts(ctx context.Context, email string) (int, error) {
	locked, err := limiter.IsLockedOut(ctx, email)
	if err != nil {
		return 0, err
	}
	if locked {
		return 0, nil
	}

	attempts, err := limiter.client.HGet(ctx, limiter.key(email), hashAttempts).Int()
	if errors.Is(err, redis.Nil) {
		return limiter.policy.MaxAttempts, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis_limiter_attempts_failed: %w", err)
	}
	return max(0, limiter.policy.MaxAttempts-attempts), nil
}

// LockoutRemaining returns the time left on the lock for email.
func (limiter *RedisLimiter) LockoutRemaining(ctx context.Context, email string) (time.Duration, error) {
	lockedUntil, err := limiter.lockedUntil(ctx, limiter.key(email))
	if err != nil || lockedUntil.IsZero() {
		return 0, err
	}
	return max(0, lockedUntil.Sub(limiter.now())), nil
}

func (limiter *RedisLimiter) lockedUntil(ctx context.Context, key string) (time.Time, error) {
	raw, err := limiter.client.HGet(ctx, key, hashLockedUntil).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis_limiter_lock_failed: %w", err)
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis_limiter_lock_corrupt: %w", err)
	}
	return time.UnixMilli(millis), nil
}
