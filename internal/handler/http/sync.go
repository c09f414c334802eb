package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/models"
)

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	var req models.PushRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.services.MergeService.Push(ctx, userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if resp.Conflicts == nil {
		resp.Conflicts = []models.SyncRecord{}
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		writeError(w, r, ErrNoUserID)
		return
	}

	req, err := parsePullRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.services.MergeService.Pull(ctx, userID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if resp.Changes == nil {
		resp.Changes = []models.SyncRecord{}
	}

	utils.WriteJSON(w, resp, http.StatusOK)
}

// parsePullRequest reads since (RFC 3339, default epoch), cursor and limit.
// Limit clamping is left to the merge service.
func parsePullRequest(r *http.Request) (models.PullRequest, error) {
	query := r.URL.Query()

	req := models.PullRequest{
		Since:  time.Unix(0, 0).UTC(),
		Cursor: query.Get("cursor"),
	}

	if since := query.Get("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339Nano, since)
		if err != nil {
			return models.PullRequest{}, fmt.Errorf("%w: since: %w", ErrInvalidQuery, err)
		}
		req.Since = parsed
	}

	if limit := query.Get("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			return models.PullRequest{}, fmt.Errorf("%w: limit: %w", ErrInvalidQuery, err)
		}
		req.Limit = parsed
	}

	return req, nil
}
