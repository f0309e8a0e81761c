// Package ratelimit implements sliding-window admission control keyed by an
// arbitrary identifier. Only admitted attempts are recorded, so a caller that
// keeps hammering a closed window does not extend its own lockout.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrBackendUnavailable wraps failures of a shared limiter backend
var ErrBackendUnavailable = errors.New("rate limiter backend unavailable")

// Limiter decides whether one more attempt for key fits in the trailing window
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Rule pairs a budget with its window
type Rule struct {
	Limit  int
	Window time.Duration
}
