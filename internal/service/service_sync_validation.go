package service

import (
	"context"
	"fmt"

	"github.com/MKhiriev/reflog-sync/internal/validators"
	"github.com/MKhiriev/reflog-sync/models"
)

// MergeValidationService rejects malformed pushes before they open a
// transaction.
type MergeValidationService struct {
	inner     MergeService
	validator validators.Validator
}

func NewMergeValidationService() MergeServiceWrapper {
	return &MergeValidationService{
		validator: validators.NewSyncValidator(),
	}
}

func (v *MergeValidationService) Push(ctx context.Context, userID string, req models.PushRequest) (models.PushResponse, error) {
	if userID == "" {
		return models.PushResponse{}, ErrInvalidDataProvided
	}
	if err := v.validator.Validate(ctx, req); err != nil {
		return models.PushResponse{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	return v.inner.Push(ctx, userID, req)
}

func (v *MergeValidationService) Pull(ctx context.Context, userID string, req models.PullRequest) (models.PullResponse, error) {
	if userID == "" {
		return models.PullResponse{}, ErrInvalidDataProvided
	}

	return v.inner.Pull(ctx, userID, req)
}

func (v *MergeValidationService) Wrap(inner MergeService) MergeService {
	v.inner = inner
	return v
}
