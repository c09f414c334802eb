package adapter

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized    = errors.New("client unauthorized")
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("not found")
	ErrDeviceLimit     = errors.New("device limit reached")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrRateLimited     = errors.New("rate limited")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")
	ErrServer          = errors.New("server error")
	ErrNetwork         = errors.New("network error")
)

// RateLimitedError is returned on HTTP 429. RetryAfter comes from the
// Retry-After header.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// QuotaExceededError is returned on HTTP 507. Nothing from the rejected push
// was stored.
type QuotaExceededError struct {
	Used  int64
	Quota int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %d of %d bytes used", ErrQuotaExceeded, e.Used, e.Quota)
}

func (e *QuotaExceededError) Unwrap() error {
	return ErrQuotaExceeded
}
