package validators

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MKhiriev/reflog-sync/models"
)

// Limits enforced on push payloads.
const (
	MaxChangesPerPush   = 100
	MaxRecordIDLength   = 128
	MaxDeviceNameLength = 128

	// MaxPushBodyBytes is the default request body ceiling of the server.
	MaxPushBodyBytes = 256 << 10

	// MaxPayloadLength leaves 4 KiB of MaxPushBodyBytes for the request
	// envelope and the other fields of the record, so a push carrying one
	// valid change is never rejected with 413.
	MaxPayloadLength = MaxPushBodyBytes - 4<<10
)

// Field name constants used to restrict validation to a subset of rules.
const (
	// FieldDeviceID targets PushRequest.DeviceID.
	FieldDeviceID = "device_id"

	// FieldLastPullTimestamp targets PushRequest.LastPullTimestamp.
	FieldLastPullTimestamp = "last_pull_timestamp"

	// FieldChanges targets PushRequest.Changes, including every record in it.
	FieldChanges = "changes"

	// FieldRecordID targets SyncRecord.ID.
	FieldRecordID = "record_id"

	// FieldRecordType targets SyncRecord.RecordType.
	FieldRecordType = "record_type"

	// FieldPayload targets SyncRecord.EncryptedPayload. Tombstones pass.
	FieldPayload = "payload"

	// FieldDeviceName targets RegisterDeviceRequest.Name.
	FieldDeviceName = "device_name"
)

// SyncValidator implements [Validator] for PushRequest, SyncRecord and
// RegisterDeviceRequest.
type SyncValidator struct{}

// NewSyncValidator returns a ready [SyncValidator].
func NewSyncValidator() Validator {
	return &SyncValidator{}
}

func (v *SyncValidator) Validate(ctx context.Context, data any, fields ...string) error {
	switch value := data.(type) {
	case models.PushRequest:
		return v.validatePushRequest(ctx, value, fields...)
	case *models.PushRequest:
		return v.validatePushRequest(ctx, *value, fields...)

	case models.SyncRecord:
		return v.validateSyncRecord(ctx, value, fields...)
	case *models.SyncRecord:
		return v.validateSyncRecord(ctx, *value, fields...)

	case models.RegisterDeviceRequest:
		return v.validateRegisterDevice(ctx, value, fields...)
	case *models.RegisterDeviceRequest:
		return v.validateRegisterDevice(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *SyncValidator) validatePushRequest(ctx context.Context, request models.PushRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldDeviceID, FieldLastPullTimestamp, FieldChanges}
	}

	for _, f := range fields {
		switch f {
		case FieldDeviceID:
			if strings.TrimSpace(request.DeviceID) == "" {
				return ErrEmptyDeviceID
			}
		case FieldLastPullTimestamp:
			if request.LastPullTimestamp == nil {
				return ErrNoLastPullTimestamp
			}
		case FieldChanges:
			if request.Changes == nil {
				return ErrNoChanges
			}
			if len(request.Changes) > MaxChangesPerPush {
				return fmt.Errorf("%w: %d > %d", ErrTooManyChanges, len(request.Changes), MaxChangesPerPush)
			}
			for i, change := range request.Changes {
				if err := v.validateSyncRecord(ctx, change); err != nil {
					return fmt.Errorf("validation error at index %d: %w", i, err)
				}
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *SyncValidator) validateSyncRecord(_ context.Context, record models.SyncRecord, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldRecordID, FieldRecordType, FieldPayload}
	}

	for _, f := range fields {
		switch f {
		case FieldRecordID:
			if record.ID == "" || utf8.RuneCountInString(record.ID) > MaxRecordIDLength {
				return ErrInvalidRecordID
			}
		case FieldRecordType:
			if !record.RecordType.Valid() {
				return ErrInvalidRecordType
			}
		case FieldPayload:
			if record.IsTombstone {
				continue
			}
			if record.EncryptedPayload == "" {
				return ErrEmptyPayload
			}
			if len(record.EncryptedPayload) > MaxPayloadLength {
				return ErrPayloadTooLong
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *SyncValidator) validateRegisterDevice(_ context.Context, request models.RegisterDeviceRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldDeviceName}
	}

	for _, f := range fields {
		switch f {
		case FieldDeviceName:
			name := strings.TrimSpace(request.Name)
			if name == "" || utf8.RuneCountInString(name) > MaxDeviceNameLength {
				return ErrInvalidDeviceName
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
