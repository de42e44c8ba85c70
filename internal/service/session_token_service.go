package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
)

type sessionTokenRepository interface {
	Insert(ctx context.Context, token *models.SessionToken) error
	FindByValue(ctx context.Context, value string) (*models.SessionToken, error)
}

// SessionTokenService mints the one-shot tokens handed out by the scan
// endpoint. Each scan gets its own token; consumption happens inside the
// admission commit, never here.
type SessionTokenService struct {
	repo        sessionTokenRepository
	validator   *validator.Validate
	logger      *zap.Logger
	tokenLength int
}

// NewSessionTokenService constructs a SessionTokenService.
func NewSessionTokenService(repo sessionTokenRepository, validate *validator.Validate, logger *zap.Logger, tokenLength int) *SessionTokenService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokenLength <= 0 {
		tokenLength = 8
	}
	return &SessionTokenService{repo: repo, validator: validate, logger: logger, tokenLength: tokenLength}
}

// Issue mints a fresh unused token bound to the session tuple and today's
// date.
func (s *SessionTokenService) Issue(ctx context.Context, className, year, subject string) (*models.SessionToken, error) {
	if className == "" || year == "" || subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class, year and subject are required")
	}

	value, err := RandomCode(s.tokenLength)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate token")
	}

	token := &models.SessionToken{
		Token:     value,
		ClassName: className,
		Year:      year,
		Subject:   subject,
		Date:      dateOf(time.Now().UTC()),
		Used:      false,
	}
	if err := s.repo.Insert(ctx, token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store token")
	}

	s.logger.Debug("scan token issued",
		zap.String("class", className),
		zap.String("subject", subject),
	)
	return token, nil
}
