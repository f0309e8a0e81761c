package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/onegreenvn/green-session-service/internal/database/repository"
)

var (
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrTokenNotFound         = errors.New("refresh token not found")
	ErrTokenExpired          = errors.New("refresh token expired")
	ErrTokenReuseDetected    = errors.New("refresh token reuse detected")
	ErrRotationLimitExceeded = errors.New("refresh token rotation limit exceeded")
	ErrSessionNotFound       = errors.New("session not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidAccessToken    = errors.New("invalid access token")
	ErrOwnerRequired         = errors.New("owner is required")

	// ErrStorageUnavailable is shared with the repository layer so errors.Is
	// works on anything a TokenStore returns
	ErrStorageUnavailable = repository.ErrStorageUnavailable
)

// RateLimitError carries the key that tripped the gate and when to retry
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Key, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimitExceeded
}

// storageError normalizes a store failure into ErrStorageUnavailable
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
