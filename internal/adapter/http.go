package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/models"
	"github.com/go-resty/resty/v2"
)

const apiPrefix = "/api/v1"

type httpSyncAPI struct {
	client *utils.HTTPClient

	mu       sync.RWMutex
	token    string
	deviceID string

	logger *logger.Logger
}

// NewHTTPSyncAPI constructs the HTTP/REST implementation of [SyncAPI].
// It normalises and validates the base URL from adapterCfg.HTTPAddress and
// configures the underlying HTTP client with it and the request timeout.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as a
// valid URL.
func NewHTTPSyncAPI(adapterCfg config.ClientAdapter, logger *logger.Logger) (SyncAPI, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	return &httpSyncAPI{
		client: utils.NewHTTPClient(baseURL, adapterCfg.RequestTimeout),
		logger: logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

func (h *httpSyncAPI) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpSyncAPI) SetDeviceID(deviceID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deviceID = deviceID
}

// Push implements [SyncAPI]. POST /api/v1/sync/push.
func (h *httpSyncAPI) Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error) {
	var result models.PushResponse

	resp, err := h.authedRequest(ctx).
		SetBody(req).
		SetResult(&result).
		Post(apiPrefix + "/sync/push")
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("%w: push request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResponse{}, err
	}

	h.logger.Debug().
		Int("sent", len(req.Changes)).
		Int("accepted", result.Accepted).
		Int("conflicts", len(result.Conflicts)).
		Msg("push completed")
	return result, nil
}

// Pull implements [SyncAPI]. GET /api/v1/sync/pull with since, cursor and
// limit as query parameters; zero values are omitted so the server applies
// its defaults.
func (h *httpSyncAPI) Pull(ctx context.Context, req models.PullRequest) (models.PullResponse, error) {
	var result models.PullResponse

	r := h.authedRequest(ctx).SetResult(&result)
	if !req.Since.IsZero() {
		r.SetQueryParam("since", req.Since.UTC().Format(time.RFC3339Nano))
	}
	if req.Cursor != "" {
		r.SetQueryParam("cursor", req.Cursor)
	}
	if req.Limit > 0 {
		r.SetQueryParam("limit", strconv.Itoa(req.Limit))
	}

	resp, err := r.Get(apiPrefix + "/sync/pull")
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("%w: pull request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	return result, nil
}

// RegisterDevice implements [SyncAPI]. POST /api/v1/devices.
func (h *httpSyncAPI) RegisterDevice(ctx context.Context, name string) (models.RegisterDeviceResponse, error) {
	var result models.RegisterDeviceResponse

	resp, err := h.authedRequest(ctx).
		SetBody(models.RegisterDeviceRequest{Name: name}).
		SetResult(&result).
		Post(apiPrefix + "/devices")
	if err != nil {
		return models.RegisterDeviceResponse{}, fmt.Errorf("%w: register device request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RegisterDeviceResponse{}, err
	}
	if result.DeviceID == "" {
		return models.RegisterDeviceResponse{}, fmt.Errorf("%w: register device: empty device id", ErrServer)
	}

	return result, nil
}

func (h *httpSyncAPI) ListDevices(ctx context.Context) ([]models.Device, error) {
	var result []models.Device

	resp, err := h.authedRequest(ctx).
		SetResult(&result).
		Get(apiPrefix + "/devices")
	if err != nil {
		return nil, fmt.Errorf("%w: list devices request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	return result, nil
}

func (h *httpSyncAPI) DeleteDevice(ctx context.Context, deviceID string) error {
	resp, err := h.authedRequest(ctx).
		SetPathParam("deviceID", deviceID).
		Delete(apiPrefix + "/devices/{deviceID}")
	if err != nil {
		return fmt.Errorf("%w: delete device request: %w", ErrNetwork, err)
	}

	return mapHTTPError(resp)
}

func (h *httpSyncAPI) Usage(ctx context.Context) (models.Usage, error) {
	var result models.Usage

	resp, err := h.authedRequest(ctx).
		SetResult(&result).
		Get(apiPrefix + "/account/usage")
	if err != nil {
		return models.Usage{}, fmt.Errorf("%w: usage request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Usage{}, err
	}

	return result, nil
}

func (h *httpSyncAPI) Export(ctx context.Context) (models.Export, error) {
	var result models.Export

	resp, err := h.authedRequest(ctx).
		SetResult(&result).
		Get(apiPrefix + "/account/export")
	if err != nil {
		return models.Export{}, fmt.Errorf("%w: export request: %w", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Export{}, err
	}

	return result, nil
}

func (h *httpSyncAPI) DeleteAccount(ctx context.Context) error {
	resp, err := h.authedRequest(ctx).Delete(apiPrefix + "/account")
	if err != nil {
		return fmt.Errorf("%w: delete account request: %w", ErrNetwork, err)
	}

	return mapHTTPError(resp)
}

func (h *httpSyncAPI) authedRequest(ctx context.Context) *resty.Request {
	h.mu.RLock()
	token, deviceID := h.token, h.deviceID
	h.mu.RUnlock()

	req := h.client.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if deviceID != "" {
		req.SetHeader("X-Device-ID", deviceID)
	}
	return req
}
