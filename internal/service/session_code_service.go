package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/jobs"
	"github.com/qrmark/qrmark-api/pkg/qr"
	"github.com/qrmark/qrmark-api/pkg/storage"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// JobTypeRenderQR labels queued QR image rendering work.
const JobTypeRenderQR = "render_qr"

type sessionCodeRepository interface {
	Replace(ctx context.Context, code *models.SessionCode) (*models.SessionCode, error)
	FindBySession(ctx context.Context, className, year, subject string, date time.Time) (*models.SessionCode, error)
	FindByID(ctx context.Context, id string) (*models.SessionCode, error)
	List(ctx context.Context, limit int) ([]models.SessionCode, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// IssueCodeRequest starts (or restarts) a class session for today.
// Anchor coordinates are optional; omitting them disables the geofence
// for the session.
type IssueCodeRequest struct {
	ClassName string `json:"class_name" validate:"required"`
	Year      string `json:"year" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	AnchorLat string `json:"anchor_lat"`
	AnchorLng string `json:"anchor_lng"`
}

// RenderQRPayload is the queue payload for background QR rendering.
type RenderQRPayload struct {
	ClassName string
	Year      string
	Subject   string
	Code      string
}

// SessionCodeService issues rotating session codes and their QR images.
type SessionCodeService struct {
	repo       sessionCodeRepository
	queue      jobEnqueuer
	renderer   *qr.Renderer
	store      *storage.LocalStorage
	validator  *validator.Validate
	logger     *zap.Logger
	codeLength int
}

// NewSessionCodeService constructs a SessionCodeService.
func NewSessionCodeService(
	repo sessionCodeRepository,
	queue jobEnqueuer,
	renderer *qr.Renderer,
	store *storage.LocalStorage,
	validate *validator.Validate,
	logger *zap.Logger,
	codeLength int,
) *SessionCodeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codeLength <= 0 {
		codeLength = 6
	}
	return &SessionCodeService{
		repo:       repo,
		queue:      queue,
		renderer:   renderer,
		store:      store,
		validator:  validate,
		logger:     logger,
		codeLength: codeLength,
	}
}

// Issue generates a fresh code for today's session, replacing any earlier
// code for the same class/year/subject. The QR image renders in the
// background; the code is usable immediately.
func (s *SessionCodeService) Issue(ctx context.Context, req IssueCodeRequest) (*models.SessionCode, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	lat, lng, err := parseAnchor(req.AnchorLat, req.AnchorLng)
	if err != nil {
		return nil, err
	}

	value, err := RandomCode(s.codeLength)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}

	code := &models.SessionCode{
		ID:        uuid.NewString(),
		ClassName: req.ClassName,
		Year:      req.Year,
		Subject:   req.Subject,
		Date:      dateOf(time.Now().UTC()),
		Code:      value,
		AnchorLat: lat,
		AnchorLng: lng,
	}

	saved, err := s.repo.Replace(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store session code")
	}

	s.enqueueRender(saved)

	s.logger.Info("session code issued",
		zap.String("class", saved.ClassName),
		zap.String("subject", saved.Subject),
		zap.String("code", saved.Code),
	)
	return saved, nil
}

// Lookup returns today's code for the session, or ErrNotFound.
func (s *SessionCodeService) Lookup(ctx context.Context, className, year, subject string) (*models.SessionCode, error) {
	code, err := s.repo.FindBySession(ctx, className, year, subject, dateOf(time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active code for this session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session code")
	}
	return code, nil
}

// Get returns a code by its ID.
func (s *SessionCodeService) Get(ctx context.Context, id string) (*models.SessionCode, error) {
	code, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session code not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session code")
	}
	return code, nil
}

// List returns recently issued codes, newest first.
func (s *SessionCodeService) List(ctx context.Context, limit int) ([]models.SessionCode, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	codes, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session codes")
	}
	return codes, nil
}

// QRImage returns the rendered QR PNG for a code, rendering inline when
// the background job has not landed yet.
func (s *SessionCodeService) QRImage(ctx context.Context, id string) ([]byte, error) {
	code, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	filename := qrFilename(code.Code)
	if s.store != nil && s.store.Exists(filename) {
		data, err := s.store.Read(filename)
		if err == nil {
			return data, nil
		}
		s.logger.Warn("failed to read cached qr image", zap.Error(err))
	}

	data, err := s.renderer.RenderPNG(code.ClassName, code.Year, code.Subject, code.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr image")
	}
	if s.store != nil {
		if _, err := s.store.Save(filename, data); err != nil {
			s.logger.Warn("failed to cache qr image", zap.Error(err))
		}
	}
	return data, nil
}

// NewQRRenderHandler returns the queue handler that materialises QR images.
func NewQRRenderHandler(renderer *qr.Renderer, store *storage.LocalStorage) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(RenderQRPayload)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		data, err := renderer.RenderPNG(payload.ClassName, payload.Year, payload.Subject, payload.Code)
		if err != nil {
			return err
		}
		if store == nil {
			return nil
		}
		_, err = store.Save(qrFilename(payload.Code), data)
		return err
	}
}

func (s *SessionCodeService) enqueueRender(code *models.SessionCode) {
	if s.queue == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:   uuid.NewString(),
		Type: JobTypeRenderQR,
		Payload: RenderQRPayload{
			ClassName: code.ClassName,
			Year:      code.Year,
			Subject:   code.Subject,
			Code:      code.Code,
		},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue qr render", zap.Error(err))
	}
}

// RandomCode draws n characters from the uppercase alphanumeric alphabet
// using crypto/rand.
func RandomCode(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[idx.Int64()]
	}
	return string(out), nil
}

func parseAnchor(rawLat, rawLng string) (*float64, *float64, error) {
	if rawLat == "" || rawLng == "" {
		return nil, nil, nil
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lng, errLng := strconv.ParseFloat(rawLng, 64)
	if errLat != nil || errLng != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "anchor coordinates must be decimal degrees")
	}
	return &lat, &lng, nil
}

func qrFilename(code string) string {
	return code + ".png"
}
