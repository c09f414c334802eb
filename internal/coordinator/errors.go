package coordinator

import "errors"

var (
	ErrNoProfileDir = errors.New("profile directory is not set")
	ErrClosed       = errors.New("coordinator is closed")
)
