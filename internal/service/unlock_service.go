package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/unlock"
)

type unlockRosterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// UnlockLink is an issued device-release capability.
type UnlockLink struct {
	StudentID string    `json:"student_id"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UnlockService issues and redeems short-lived signed links that release a
// device binding. Redeeming reveals nothing about why a bad link failed.
type UnlockService struct {
	roster  unlockRosterRepository
	signer  *unlock.Signer
	logger  *zap.Logger
	baseURL string
}

// NewUnlockService constructs an UnlockService. baseURL is the public
// prefix the redeem path hangs off, e.g. "https://attend.example.com".
func NewUnlockService(roster unlockRosterRepository, signer *unlock.Signer, logger *zap.Logger, baseURL string) *UnlockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnlockService{
		roster:  roster,
		signer:  signer,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Issue creates a signed unlock link for an enrolled student.
func (s *UnlockService) Issue(ctx context.Context, studentID string) (*UnlockLink, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}

	student, err := s.roster.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownStudent
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	token, expiresAt, err := s.signer.Issue(student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign unlock link")
	}

	s.logger.Info("unlock link issued",
		zap.String("student_id", student.ID),
		zap.Time("expires_at", expiresAt),
	)

	return &UnlockLink{
		StudentID: student.ID,
		Token:     token,
		URL:       fmt.Sprintf("%s/api/v1/unlock/%s", s.baseURL, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Redeem verifies a link and returns the student it releases. Expired,
// tampered and malformed tokens all collapse into the same error.
func (s *UnlockService) Redeem(token string) (string, error) {
	studentID, err := s.signer.Redeem(token)
	if err != nil {
		return "", appErrors.ErrInvalidUnlockLink
	}
	s.logger.Info("device unlocked", zap.String("student_id", studentID))
	return studentID, nil
}
