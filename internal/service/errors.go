package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDataProvided = errors.New("invalid data provided")
	ErrInvalidCursor       = errors.New("invalid pull cursor")

	ErrTokenIsExpiredOrInvalid = errors.New("token is expired or invalid")
	ErrVersionIsNotSpecified   = errors.New("app version is not specified")

	// ErrStorageUnavailable wraps transient database failures; the request
	// may be retried as is.
	ErrStorageUnavailable = errors.New("storage temporarily unavailable")

	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Client-side errors.
var (
	ErrVaultNotSetUp     = errors.New("vault is not set up")
	ErrVaultAlreadySetUp = errors.New("vault is already set up")
	ErrNoDeviceID        = errors.New("device is not registered")
	ErrEntryNotFound     = errors.New("entry was not found")
)

// QuotaExceededError rejects a whole push batch. Used is the usage before the
// batch; nothing from the batch was written.
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
