// Package retry implements the randomized-exponential-backoff retry used
// by the concurrency controller's commit loop.
package retry

import (
	"context"
	"time"

	"github.com/catalogd/catalogd/pkg/prng"
)

// Policy bounds how many times the commit loop will retry on conflict
// and how the backoff delay between attempts grows.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Seed, when non-zero, makes the jitter deterministic (tests only).
	Seed int64
}

// DefaultPolicy matches the CATALOG_RETRY_ATTEMPTS / CATALOG_RETRY_BACKOFF_MS defaults.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}
}

// Loop holds the mutable state of one commit loop's retry schedule.
type Loop struct {
	policy  Policy
	src     *prng.Source
	attempt int
}

// New starts a retry loop for policy.
func New(policy Policy) *Loop {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 5
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 50 * time.Millisecond
	}
	return &Loop{policy: policy, src: prng.NewSource(policy.Seed)}
}

// Attempts returns the number of attempts made so far (1-indexed once
// Next has been called at least once).
func (l *Loop) Attempts() int { return l.attempt }

// Exhausted reports whether the configured attempt budget has been spent.
func (l *Loop) Exhausted() bool { return l.attempt >= l.policy.MaxAttempts }

// Next records one more attempt and sleeps a randomized exponential
// backoff delay (see jitter) before returning, unless ctx is cancelled first. It returns
// ctx.Err() if the wait was interrupted.
func (l *Loop) Next(ctx context.Context) error {
	l.attempt++
	delay := l.jitter()
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// jitter picks a delay uniformly from [base, base*2^attempt), capped at
// 2^10, so concurrent writers racing the same catalog file fan out
// instead of retrying in lockstep.
func (l *Loop) jitter() time.Duration {
	base := l.policy.BaseDelay
	ceiling := base * time.Duration(1<<uint(min(l.attempt, 10)))
	span := int64(ceiling - base)
	if span <= 0 {
		return base
	}
	return base + time.Duration(l.src.Int63n(span))
}
