// Package ratelimit throttles login attempts with a sliding window per
// source IP. Successful logins clear the window so a legitimate user who
// fat-fingers a password a few times is not punished after recovering.
package ratelimit

import (
	"context"
	"time"

	dErrors "vetcred/pkg/domain-errors"
	"vetcred/pkg/requestcontext"
)

const (
	// DefaultMaxAttempts failed logins per window block further attempts.
	DefaultMaxAttempts = 10
	// DefaultWindow is the sliding window width.
	DefaultWindow = 15 * time.Minute
)

// Store counts failed attempts per key within a sliding window.
type Store interface {
	// RecordFailure appends one failure at ts and returns the count of
	// failures still inside the window ending at ts.
	RecordFailure(ctx context.Context, key string, ts time.Time, window time.Duration) (int, error)
	// Count returns failures inside the window ending at ts without
	// recording anything.
	Count(ctx context.Context, key string, ts time.Time, window time.Duration) (int, error)
	// Clear drops all recorded failures for key.
	Clear(ctx context.Context, key string) error
}

// Limiter is the login throttle consulted before and after each attempt.
type Limiter struct {
	store       Store
	maxAttempts int
	window      time.Duration
}

type Option func(*Limiter)

func WithMaxAttempts(n int) Option {
	return func(l *Limiter) { l.maxAttempts = n }
}

func WithWindow(w time.Duration) Option {
	return func(l *Limiter) { l.window = w }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether another attempt from key may proceed right now.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	n, err := l.store.Count(ctx, key, requestcontext.Now(ctx), l.window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check login throttle")
	}
	if n >= l.maxAttempts {
		return dErrors.New(dErrors.CodeUnauthorized, "too many failed attempts, try again later")
	}
	return nil
}

// RecordFailure notes one failed attempt.
func (l *Limiter) RecordFailure(ctx context.Context, key string) error {
	if _, err := l.store.RecordFailure(ctx, key, requestcontext.Now(ctx), l.window); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	return nil
}

// RecordSuccess resets the window for key.
func (l *Limiter) RecordSuccess(ctx context.Context, key string) error {
	if err := l.store.Clear(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login throttle")
	}
	return nil
}
