package service

import (
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/store"
	"github.com/MKhiriev/reflog-sync/models"
)

// Services groups the server-side services.
type Services struct {
	AuthService      AuthService
	MergeService     MergeService
	DeviceService    DeviceService
	AccountService   AccountService
	AppInfoService   AppInfoService
	TombstoneService TombstoneService
}

func NewServices(storages *store.Storages, cfg *config.StructuredConfig, build models.AppBuildInfo, logger *logger.Logger) (*Services, error) {
	appInfo, err := NewAppInfoService(cfg.App, build, logger)
	if err != nil {
		return nil, fmt.Errorf("app info service: %w", err)
	}

	merge := NewMergeValidationService().Wrap(NewMergeService(storages.SyncRecordRepository, logger))

	return &Services{
		AuthService:      NewAuthService(cfg.App, logger),
		MergeService:     merge,
		DeviceService:    NewDeviceService(storages.DeviceRepository, cfg.Sync, logger),
		AccountService:   NewAccountService(storages.UserRepository, storages.SyncRecordRepository, cfg.Sync, logger),
		AppInfoService:   appInfo,
		TombstoneService: NewTombstoneService(storages.SyncRecordRepository, cfg.Sync, logger),
	}, nil
}
