package http

import (
	"net/http"

	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/models"
)

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	usage, err := h.services.AccountService.Usage(ctx, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, usage, http.StatusOK)
}

// export returns every record of the caller, still encrypted.
func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	export, err := h.services.AccountService.Export(ctx, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if export.Records == nil {
		export.Records = []models.SyncRecord{}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="reflog-export.json"`)
	utils.WriteJSON(w, export, http.StatusOK)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	if err := h.services.AccountService.DeleteAccount(ctx, userID); err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromRequest(r).Info().Str("user_id", userID).Msg("account deleted")
	w.WriteHeader(http.StatusNoContent)
}
