package http

import (
	"net/http"

	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/models"
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, models.HealthResponse{
		Status:  "ok",
		Version: h.services.AppInfoService.GetAppVersion(r.Context()),
	}, http.StatusOK)
}
