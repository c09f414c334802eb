package service

import (
	"context"
	"time"

	"github.com/MKhiriev/reflog-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/service_mock.go -package=mock

// MergeService applies pushes and serves pull pages for one user at a time.
type MergeService interface {
	// Push merges req into the user's records. Records changed on the
	// server after req.LastPullTimestamp come back as conflicts and are not
	// written. Returns *QuotaExceededError when the accepted changes would
	// take the user over quota; in that case nothing is written.
	Push(ctx context.Context, userID string, req models.PushRequest) (models.PushResponse, error)

	// Pull returns one keyset page of records updated after req.Since.
	Pull(ctx context.Context, userID string, req models.PullRequest) (models.PullResponse, error)
}

// MergeServiceWrapper defines middleware composition for MergeService.
// Implementations wrap an existing MergeService to add behavior such as
// validation.
type MergeServiceWrapper interface {
	Wrap(MergeService) MergeService
}

type DeviceService interface {
	RegisterDevice(ctx context.Context, userID, name string) (models.Device, error)
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
	DeleteDevice(ctx context.Context, userID, deviceID string) error
	// TouchDevice records that the device made a request just now.
	TouchDevice(ctx context.Context, userID, deviceID string) error
}

type AccountService interface {
	// EnsureUser provisions the user on first sight with the default quota.
	EnsureUser(ctx context.Context, userID string) (models.User, error)
	Usage(ctx context.Context, userID string) (models.Usage, error)
	Export(ctx context.Context, userID string) (models.Export, error)
	DeleteAccount(ctx context.Context, userID string) error
}

type AuthService interface {
	// ParseToken verifies a bearer token issued by the identity provider.
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)
}

type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}

// TombstoneService purges delete markers older than the retention window.
type TombstoneService interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
