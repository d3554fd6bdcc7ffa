// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// # Contracts & Types

// Limiter tracks failed sign-ins per email and locks an email out once the
// policy threshold is reached.
type Limiter interface {
	IsLockedOut(ctx context.Context, email string) (bool, error)
	RecordFailedAttempt(ctx context.Context, email string) error
	RecordSuccessfulLogin(ctx context.Context, email string) error
	RemainingAttempts(ctx context.Context, email string) (int, error)
	LockoutRemaining(ctx context.Context, email string) (time.Duration, error)
}

// Policy holds the limiter thresholds.
type Policy struct {
	// MaxAttempts is the failure count that triggers a lockout.
	MaxAttempts int

	// Lockout is how long a locked email stays locked.
	Lockout time.Duration

	// Window is how long failures keep counting towards MaxAttempts.
	Window time.Duration
}

// DefaultPolicy allows 5 failures within 5 minutes, then locks for 5 minutes.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Lockout:     300 * time.Second,
		Window:      300 * time.Second,
	}
}

// LimiterKey normalises an email into the counter key.
func LimiterKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LockoutMessage formats the user-facing lockout notice for a remaining duration.
// Partial seconds are truncated.
func LockoutMessage(remaining time.Duration) string {
	total := int(remaining / time.Second)
	if total < 0 {
		total = 0
	}

	minutes, seconds := total/60, total%60
	if minutes > 0 {
		return fmt.Sprintf("Too many failed login attempts. Account locked for %dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("Too many failed login attempts. Account locked for %d seconds", seconds)
}

// # Memory Backend

type attemptRecord struct {
	attempts     int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// MemoryLimiter keeps counters in a process-local map. Counters are lost on restart.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
	policy  Policy
	now     func() time.Time
}

// NewMemoryLimiter returns an empty [MemoryLimiter] using the wall clock.
func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	return &MemoryLimiter{
		records: make(map[string]*attemptRecord),
		policy:  policy,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (limiter *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	limiter.now = now
	return limiter
}

// IsLockedOut reports whether email is currently locked. An expired lock drops the record.
func (limiter *MemoryLimiter) IsLockedOut(_ context.Context, email string) (bool, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	return limiter.lockedLocked(LimiterKey(email)), nil
}

func (limiter *MemoryLimiter) lockedLocked(key string) bool {
	record, ok := limiter.records[key]
	if !ok || record.lockedUntil.IsZero() {
		return false
	}

	if limiter.now().Before(record.lockedUntil) {
		return true
	}

	delete(limiter.records, key)
	return false
}

// RecordFailedAttempt counts one failure and locks the email at the threshold.
func (limiter *MemoryLimiter) RecordFailedAttempt(_ context.Context, email string) error {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	key := LimiterKey(email)
	now := limiter.now()

	record, ok := limiter.records[key]
	if !ok || now.Sub(record.firstAttempt) > limiter.policy.Window {
		record = &attemptRecord{firstAttempt: now}
		limiter.records[key] = record
	}

	record.attempts++
	if record.attempts >= limiter.policy.MaxAttempts {
		record.lockedUntil = now.Add(limiter.policy.Lockout)
	}
	return nil
}

// RecordSuccessfulLogin clears the history for email.
func (limiter *MemoryLimiter) RecordSuccessfulLogin(_ context.Context, email string) error {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	delete(limiter.records, LimiterKey(email))
	return nil
}

// RemainingAttempts returns how many failures are left before a lockout. It is 0 while locked.
func (limiter *MemoryLimiter) RemainingAttempts(_ context.Context, email string) (int, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	key := LimiterKey(email)
	if limiter.lockedLocked(key) {
		return 0, nil
	}

	record, ok := limiter.records[key]
	if !ok {
		return limiter.policy.MaxAttempts, nil
	}
	return max(0, limiter.policy.MaxAttempts-record.attempts), nil
}

// LockoutRemaining returns the time left on a lock, or 0 when email is not locked.
func (limiter *MemoryLimiter) LockoutRemaining(_ context.Context, email string) (time.Duration, error) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	record, ok := limiter.records[LimiterKey(email)]
	if !ok || record.lockedUntil.IsZero() {
		return 0, nil
	}
	return max(0, record.lockedUntil.Sub(limiter.now())), nil
}
