package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/mock"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestDeviceService(t *testing.T) (service.DeviceService, *mock.MockDeviceRepository) {
	t.Helper()
	devices := mock.NewMockDeviceRepository(gomock.NewController(t))
	svc := service.NewDeviceService(devices, config.Sync{MaxDevices: 3}, logger.Nop())
	service.SetDeviceClock(svc, func() time.Time { return mergeNow })
	return svc, devices
}

func TestDeviceService_RegisterDevice(t *testing.T) {
	svc, devices := newTestDeviceService(t)
	ctx := context.Background()

	devices.EXPECT().CreateDevice(ctx, gomock.Any(), 3).
		DoAndReturn(func(_ context.Context, d models.Device, _ int) (models.Device, error) {
			return d, nil
		})

	device, err := svc.RegisterDevice(ctx, "user-1", "  laptop ")
	require.NoError(t, err)

	_, err = uuid.Parse(device.ID)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", device.UserID)
	assert.Equal(t, "laptop", device.Name)
	assert.Equal(t, mergeNow, device.RegisteredAt)
}

func TestDeviceService_RegisterDevice_LimitReached(t *testing.T) {
	svc, devices := newTestDeviceService(t)

	devices.EXPECT().CreateDevice(gomock.Any(), gomock.Any(), 3).Return(models.Device{}, store.ErrDeviceLimitReached)

	_, err := svc.RegisterDevice(context.Background(), "user-1", "phone")
	assert.ErrorIs(t, err, store.ErrDeviceLimitReached)
}

func TestDeviceService_RegisterDevice_InvalidName(t *testing.T) {
	svc, _ := newTestDeviceService(t)

	_, err := svc.RegisterDevice(context.Background(), "user-1", "   ")
	assert.ErrorIs(t, err, service.ErrInvalidDataProvided)
}

func TestDeviceService_DeleteDevice(t *testing.T) {
	svc, devices := newTestDeviceService(t)
	ctx := context.Background()

	devices.EXPECT().DeleteDevice(ctx, "user-1", "dev-1").Return(nil)
	require.NoError(t, svc.DeleteDevice(ctx, "user-1", "dev-1"))

	devices.EXPECT().DeleteDevice(ctx, "user-1", "dev-2").Return(store.ErrDeviceNotFound)
	assert.ErrorIs(t, svc.DeleteDevice(ctx, "user-1", "dev-2"), store.ErrDeviceNotFound)

	assert.ErrorIs(t, svc.DeleteDevice(ctx, "user-1", ""), service.ErrInvalidDataProvided)
}

func TestDeviceService_ListAndTouch(t *testing.T) {
	svc, devices := newTestDeviceService(t)
	ctx := context.Background()

	want := []models.Device{{ID: "dev-1", Name: "laptop"}}
	devices.EXPECT().ListDevices(ctx, "user-1").Return(want, nil)
	devices.EXPECT().TouchDevice(ctx, "user-1", "dev-1", mergeNow).Return(nil)

	got, err := svc.ListDevices(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, svc.TouchDevice(ctx, "user-1", "dev-1"))
}
