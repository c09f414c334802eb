// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAdapter creates an httpSyncAPI pointed at the test server.
func newTestAdapter(t *testing.T, serverURL string) *httpSyncAPI {
	t.Helper()
	a, err := NewHTTPSyncAPI(config.ClientAdapter{HTTPAddress: serverURL, RequestTimeout: 5 * time.Second}, logger.Nop())
	require.NoError(t, err)

	api := a.(*httpSyncAPI)
	api.SetToken("test-token")
	return api
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// ── constructor ─────────────────────────────────────────────────────────────

func TestNewHTTPSyncAPI_InvalidAddress(t *testing.T) {
	_, err := NewHTTPSyncAPI(config.ClientAdapter{HTTPAddress: "  "}, logger.Nop())
	assert.Error(t, err)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "adds scheme", raw: "localhost:8080", want: "http://localhost:8080"},
		{name: "trims trailing slash", raw: "https://sync.example.com/", want: "https://sync.example.com"},
		{name: "empty", raw: "", wantErr: true},
		{name: "no host", raw: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBaseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ── Push ────────────────────────────────────────────────────────────────────

func TestPush_Success(t *testing.T) {
	lastPull := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	serverTS := lastPull.Add(time.Minute)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/sync/push", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "device-1", r.Header.Get("X-Device-ID"))

		var req models.PushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "device-1", req.DeviceID)
		require.Len(t, req.Changes, 2)
		require.NotNil(t, req.LastPullTimestamp)
		assert.True(t, lastPull.Equal(*req.LastPullTimestamp))

		writeJSON(t, w, http.StatusOK, models.PushResponse{
			Accepted:        1,
			Conflicts:       []models.SyncRecord{{ID: "e2", RecordType: models.RecordTypeEntry, Version: 4}},
			ServerTimestamp: serverTS,
		})
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	a.SetDeviceID("device-1")

	resp, err := a.Push(context.Background(), models.PushRequest{
		Changes: []models.SyncRecord{
			{ID: "e1", RecordType: models.RecordTypeEntry, EncryptedPayload: "AAAA"},
			{ID: "e2", RecordType: models.RecordTypeEntry, EncryptedPayload: "BBBB"},
		},
		DeviceID:          "device-1",
		LastPullTimestamp: &lastPull,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Accepted)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "e2", resp.Conflicts[0].ID)
	assert.True(t, serverTS.Equal(resp.ServerTimestamp))
}

func TestPush_QuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInsufficientStorage, models.QuotaExceededResponse{
			ErrorResponse:     models.ErrorResponse{Error: models.ErrorCodeQuotaExceeded, Message: "quota"},
			StorageUsedBytes:  900,
			StorageQuotaBytes: 1000,
		})
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Push(context.Background(), models.PushRequest{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	var quotaErr *QuotaExceededError
	require.True(t, errors.As(err, &quotaErr))
	assert.Equal(t, int64(900), quotaErr.Used)
	assert.Equal(t, int64(1000), quotaErr.Quota)
}

func TestPush_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		writeJSON(t, w, http.StatusTooManyRequests, models.ErrorResponse{Error: models.ErrorCodeRateLimited})
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Push(context.Background(), models.PushRequest{})

	var rateErr *RateLimitedError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 17*time.Second, rateErr.RetryAfter)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestPush_RateLimitedWithoutHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Push(context.Background(), models.PushRequest{})

	var rateErr *RateLimitedError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 60*time.Second, rateErr.RetryAfter)
}

func TestPush_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestAdapter(t, url).Push(context.Background(), models.PushRequest{})
	assert.ErrorIs(t, err, ErrNetwork)
}

// ── Pull ────────────────────────────────────────────────────────────────────

func TestPull_QueryParameters(t *testing.T) {
	since := time.Date(2026, 3, 1, 10, 0, 0, 123000, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/sync/pull", r.URL.Path)
		assert.Equal(t, since.Format(time.RFC3339Nano), r.URL.Query().Get("since"))
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		writeJSON(t, w, http.StatusOK, models.PullResponse{
			Changes: []models.SyncRecord{{ID: "e1", RecordType: models.RecordTypeEntry}},
			HasMore: true,
			Cursor:  "next",
		})
	}))
	defer srv.Close()

	resp, err := newTestAdapter(t, srv.URL).Pull(context.Background(), models.PullRequest{Since: since, Cursor: "abc", Limit: 50})

	require.NoError(t, err)
	assert.True(t, resp.HasMore)
	assert.Equal(t, "next", resp.Cursor)
	require.Len(t, resp.Changes, 1)
}

func TestPull_ZeroValuesOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		writeJSON(t, w, http.StatusOK, models.PullResponse{})
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Pull(context.Background(), models.PullRequest{})
	require.NoError(t, err)
}

func TestPull_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, models.ErrorResponse{Error: models.ErrorCodeUnauthorized, Message: "token expired"})
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).Pull(context.Background(), models.PullRequest{})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "token expired")
}

// ── Devices ─────────────────────────────────────────────────────────────────

func TestRegisterDevice_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/devices", r.URL.Path)

		var req models.RegisterDeviceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "laptop", req.Name)

		writeJSON(t, w, http.StatusCreated, models.RegisterDeviceResponse{DeviceID: "dev-9", Name: req.Name})
	}))
	defer srv.Close()

	got, err := newTestAdapter(t, srv.URL).RegisterDevice(context.Background(), "laptop")

	require.NoError(t, err)
	assert.Equal(t, "dev-9", got.DeviceID)
}

func TestRegisterDevice_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, models.ErrorResponse{Error: models.ErrorCodeDeviceLimit})
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).RegisterDevice(context.Background(), "laptop")
	assert.ErrorIs(t, err, ErrDeviceLimit)
}

func TestRegisterDevice_EmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusCreated, models.RegisterDeviceResponse{})
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).RegisterDevice(context.Background(), "laptop")
	assert.ErrorIs(t, err, ErrServer)
}

func TestListAndDeleteDevices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/devices":
			writeJSON(t, w, http.StatusOK, []models.Device{{ID: "d1", Name: "phone"}, {ID: "d2", Name: "laptop"}})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/devices/d1":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete:
			writeJSON(t, w, http.StatusNotFound, models.ErrorResponse{Error: models.ErrorCodeNotFound})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)

	devices, err := a.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	require.NoError(t, a.DeleteDevice(context.Background(), "d1"))
	assert.ErrorIs(t, a.DeleteDevice(context.Background(), "other"), ErrNotFound)
}

// ── Account ─────────────────────────────────────────────────────────────────

func TestAccountEndpoints(t *testing.T) {
	exportedAt := time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/account/usage":
			writeJSON(t, w, http.StatusOK, models.Usage{StorageUsedBytes: 10, StorageQuotaBytes: 100, RecordCount: 2, DeviceCount: 1})
		case "/api/v1/account/export":
			writeJSON(t, w, http.StatusOK, models.Export{Records: []models.SyncRecord{{ID: "e1"}}, ExportedAt: exportedAt})
		case "/api/v1/account":
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	ctx := context.Background()

	usage, err := a.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Usage{StorageUsedBytes: 10, StorageQuotaBytes: 100, RecordCount: 2, DeviceCount: 1}, usage)

	export, err := a.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, export.Records, 1)
	assert.True(t, exportedAt.Equal(export.ExportedAt))

	require.NoError(t, a.DeleteAccount(ctx))
}

// ── error mapping ───────────────────────────────────────────────────────────

func TestMapHTTPError_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusRequestEntityTooLarge, ErrPayloadTooLarge},
		{http.StatusInternalServerError, ErrServer},
		{http.StatusServiceUnavailable, ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestAdapter(t, srv.URL).DeleteAccount(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 60*time.Second, parseRetryAfter("", now))
	assert.Equal(t, 60*time.Second, parseRetryAfter("soon", now))
	assert.Equal(t, 60*time.Second, parseRetryAfter("-5", now))
	assert.Equal(t, 0*time.Second, parseRetryAfter("0", now))
	assert.Equal(t, 30*time.Second, parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), parseRetryAfter(now.Add(-time.Hour).Format(http.TimeFormat), now))
}
