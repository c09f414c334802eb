package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/internal/utils"
	"github.com/MKhiriev/reflog-sync/internal/validators"
	"github.com/MKhiriev/reflog-sync/models"
)

type deviceService struct {
	devices    store.DeviceRepository
	validator  validators.Validator
	ids        *utils.UUIDGenerator
	maxDevices int

	now    func() time.Time
	logger *logger.Logger
}

// NewDeviceService constructs a DeviceService enforcing cfg.MaxDevices.
func NewDeviceService(devices store.DeviceRepository, cfg config.Sync, logger *logger.Logger) DeviceService {
	return &deviceService{
		devices:    devices,
		validator:  validators.NewSyncValidator(),
		ids:        utils.NewUUIDGenerator(),
		maxDevices: cfg.MaxDevices,
		now:        time.Now,
		logger:     logger,
	}
}

// RegisterDevice assigns a fresh id to the device. store.ErrDeviceLimitReached
// is returned once the user already has the maximum number of devices.
func (s *deviceService) RegisterDevice(ctx context.Context, userID, name string) (models.Device, error) {
	if err := s.validator.Validate(ctx, models.RegisterDeviceRequest{Name: name}); err != nil {
		return models.Device{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	device, err := s.devices.CreateDevice(ctx, models.Device{
		ID:           s.ids.Generate(),
		UserID:       userID,
		Name:         strings.TrimSpace(name),
		RegisteredAt: s.now().UTC(),
	}, s.maxDevices)
	if err != nil {
		return models.Device{}, fmt.Errorf("register device: %w", err)
	}

	logger.FromContext(ctx).Info().
		Str("user_id", userID).
		Str("device_id", device.ID).
		Msg("device registered")
	return device, nil
}

func (s *deviceService) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	devices, err := s.devices.ListDevices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return devices, nil
}

func (s *deviceService) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	if deviceID == "" {
		return ErrInvalidDataProvided
	}
	if err := s.devices.DeleteDevice(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

func (s *deviceService) TouchDevice(ctx context.Context, userID, deviceID string) error {
	return s.devices.TouchDevice(ctx, userID, deviceID, s.now().UTC())
}
