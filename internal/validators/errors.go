package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrEmptyDeviceID       = errors.New("deviceId is required")
	ErrNoLastPullTimestamp = errors.New("lastPullTimestamp is required")
	ErrNoChanges           = errors.New("changes is required")
	ErrTooManyChanges      = errors.New("too many changes in one push")
	ErrInvalidRecordID     = errors.New("invalid record id")
	ErrInvalidRecordType   = errors.New("invalid record type")
	ErrEmptyPayload        = errors.New("encryptedPayload is required")
	ErrPayloadTooLong      = errors.New("encryptedPayload is too long")
	ErrInvalidDeviceName   = errors.New("invalid device name")
)
