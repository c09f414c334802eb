package http

import (
	"net/http"

	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	var req models.RegisterDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	device, err := h.services.DeviceService.RegisterDevice(ctx, userID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, models.RegisterDeviceResponse{
		DeviceID:     device.ID,
		Name:         device.Name,
		RegisteredAt: device.RegisteredAt,
	}, http.StatusCreated)
}

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	devices, err := h.services.DeviceService.ListDevices(ctx, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}

	utils.WriteJSON(w, devices, http.StatusOK)
}

func (h *Handler) deleteDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	if err := h.services.DeviceService.DeleteDevice(ctx, userID, chi.URLParam(r, "deviceID")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
