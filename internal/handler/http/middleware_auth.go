package http

import (
	"context"
	"net/http"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/utils"
)

const deviceIDHeader = "X-Device-ID"

// auth is an HTTP middleware that enforces bearer-token authentication.
//
// The token is verified via [service.AuthService.ParseToken]; its subject is
// the user id. The user is provisioned on first sight through
// [service.AccountService.EnsureUser], then stored in the request context
// under [utils.UserIDCtxKey].
//
// When the request carries an X-Device-ID header, the id is stored under
// [utils.DeviceIDCtxKey] and the device's last-seen time is refreshed. A
// failed refresh is logged and does not fail the request.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Debug().Err(ErrEmptyAuthorizationHeader).Send()
			writeError(w, r, ErrEmptyAuthorizationHeader)
			return
		}

		tokenString, err := utils.ParseBearerToken(authHeader)
		if err != nil {
			log.Debug().Err(err).Send()
			writeError(w, r, ErrInvalidAuthorizationHeader)
			return
		}

		ctx := r.Context()
		token, err := h.services.AuthService.ParseToken(ctx, tokenString)
		if err != nil {
			writeError(w, r, err)
			return
		}

		user, err := h.services.AccountService.EnsureUser(ctx, token.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx = context.WithValue(ctx, utils.UserIDCtxKey, user.ID)

		if deviceID := r.Header.Get(deviceIDHeader); deviceID != "" {
			ctx = context.WithValue(ctx, utils.DeviceIDCtxKey, deviceID)
			if err := h.services.DeviceService.TouchDevice(ctx, user.ID, deviceID); err != nil {
				log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to update device last seen")
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
