package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
)

type deviceLockRepository interface {
	FindActive(ctx context.Context, studentID string, now time.Time) (*models.DeviceLock, error)
}

// DeviceLockService answers "is this student's device cooling down right
// now". Locks are written by the admission commit; this service only reads.
type DeviceLockService struct {
	repo   deviceLockRepository
	logger *zap.Logger
}

// NewDeviceLockService constructs a DeviceLockService.
func NewDeviceLockService(repo deviceLockRepository, logger *zap.Logger) *DeviceLockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceLockService{repo: repo, logger: logger}
}

// Check returns the active lock for the student, or nil when none remains.
func (s *DeviceLockService) Check(ctx context.Context, studentID string) (*models.DeviceLock, error) {
	if studentID == "" {
		return nil, nil
	}
	lock, err := s.repo.FindActive(ctx, studentID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check device lock")
	}
	return lock, nil
}
