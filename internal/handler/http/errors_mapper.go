package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/models"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrInvalidCursor:           http.StatusBadRequest,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrStorageUnavailable:      http.StatusServiceUnavailable,
	service.ErrQuotaExceeded:           http.StatusInsufficientStorage,

	ErrEmptyAuthorizationHeader:   http.StatusUnauthorized,
	ErrInvalidAuthorizationHeader: http.StatusUnauthorized,
	ErrPayloadTooLarge:            http.StatusRequestEntityTooLarge,
	ErrInvalidJSON:                http.StatusBadRequest,
	ErrInvalidQuery:               http.StatusBadRequest,
	ErrNoUserID:                   http.StatusUnauthorized,

	store.ErrDeviceLimitReached: http.StatusConflict,
	store.ErrDeviceNotFound:     http.StatusNotFound,
	store.ErrUserNotFound:       http.StatusNotFound,
}

var errorCodes = map[int]string{
	http.StatusBadRequest:            models.ErrorCodeBadRequest,
	http.StatusUnauthorized:          models.ErrorCodeUnauthorized,
	http.StatusNotFound:              models.ErrorCodeNotFound,
	http.StatusConflict:              models.ErrorCodeDeviceLimit,
	http.StatusRequestEntityTooLarge: models.ErrorCodePayloadTooLarge,
	http.StatusTooManyRequests:       models.ErrorCodeRateLimited,
	http.StatusInsufficientStorage:   models.ErrorCodeQuotaExceeded,
	http.StatusServiceUnavailable:    models.ErrorCodeUnavailable,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// writeError renders err as an ErrorResponse. Server-side failures are logged
// in full and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)

	code, ok := errorCodes[status]
	if !ok {
		code = models.ErrorCodeInternal
	}

	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusInsufficientStorage {
		logger.FromRequest(r).Err(err).Int("status", status).Msg("request failed")
		message = http.StatusText(status)
	}

	body := models.ErrorResponse{Error: code, Message: message}

	var quotaErr *service.QuotaExceededError
	if errors.As(err, &quotaErr) {
		utils.WriteJSON(w, models.QuotaExceededResponse{
			ErrorResponse:     body,
			StorageUsedBytes:  quotaErr.Used,
			StorageQuotaBytes: quotaErr.Quota,
		}, status)
		return
	}

	utils.WriteJSON(w, body, status)
}
