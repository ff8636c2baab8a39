// Package ratelimit implements a fixed-window request limiter keyed by
// client identifier.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Store counts hits per key in fixed windows.
type Store interface {
	// Hit records one hit for key at now and returns the hit count in the
	// current window and the time the window ends. The first hit, or a hit
	// after the previous window ended, opens a new window of the given length.
	Hit(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)
}

// Rule is a named limit: at most Max hits per Window.
type Rule struct {
	Name    string
	Max     int
	Window  time.Duration
	Message string
}

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the time until the window ends, never negative.
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (r Result) RetryAfterSeconds() int {
	return int(math.Ceil(r.RetryAfter.Seconds()))
}

// Limiter applies one Rule against a Store.
type Limiter struct {
	rule  Rule
	store Store
	now   func() time.Time
}

// New creates a Limiter for rule.
func New(rule Rule, store Store) *Limiter {
	return &Limiter{rule: rule, store: store, now: time.Now}
}

// WithClock replaces the limiter clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	if now != nil {
		l.now = now
	}
	return l
}

// Rule returns the limiter's rule.
func (l *Limiter) Rule() Rule {
	return l.rule
}

// Allow records a hit for clientID and reports whether it is within the
// limit. Keys are namespaced by rule name so rules never share counters.
func (l *Limiter) Allow(ctx context.Context, clientID string) (Result, error) {
	now := l.now()

	count, resetAt, err := l.store.Hit(ctx, l.rule.Name+":"+clientID, l.rule.Window, now)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", l.rule.Name, err)
	}

	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	return Result{
		Allowed:    count <= l.rule.Max,
		Limit:      l.rule.Max,
		Remaining:  max(l.rule.Max-count, 0),
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}, nil
}
