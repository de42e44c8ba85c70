package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	"github.com/qrmark/qrmark-api/internal/repository"
	"github.com/qrmark/qrmark-api/pkg/config"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/geo"
)

type admissionRosterRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type admissionCodeRepository interface {
	FindBySession(ctx context.Context, className, year, subject string, date time.Time) (*models.SessionCode, error)
}

type admissionTokenRepository interface {
	FindByValue(ctx context.Context, value string) (*models.SessionToken, error)
}

type admissionLedgerRepository interface {
	Exists(ctx context.Context, studentID, className, year, subject, code string, day time.Time) (bool, error)
	CommitAdmission(ctx context.Context, record *models.AttendanceRecord, tokenValue string, lock *models.DeviceLock) error
}

type admissionMetrics interface {
	ObserveAdmission(outcome string)
}

// AdmissionService is the single decision point for "admit or reject this
// attendance event". Gates run in a fixed order and the first failure
// returns immediately; everything before the commit is a pure read, so a
// reject never mutates state.
type AdmissionService struct {
	roster    admissionRosterRepository
	codes     admissionCodeRepository
	tokens    admissionTokenRepository
	ledger    admissionLedgerRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   admissionMetrics
	cfg       config.AdmissionConfig
}

// NewAdmissionService constructs the admission pipeline.
func NewAdmissionService(
	roster admissionRosterRepository,
	codes admissionCodeRepository,
	tokens admissionTokenRepository,
	ledger admissionLedgerRepository,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics admissionMetrics,
	cfg config.AdmissionConfig,
) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GeofenceRadiusMeters <= 0 {
		cfg.GeofenceRadiusMeters = 100
	}
	if cfg.DeviceLockTTL <= 0 {
		cfg.DeviceLockTTL = 40 * time.Minute
	}
	return &AdmissionService{
		roster:    roster,
		codes:     codes,
		tokens:    tokens,
		ledger:    ledger,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// CheckinRequest carries one attendance submission. DeviceStudentID is the
// device-binding credential from the client; it is a hint only and is
// re-validated here. Coordinates arrive as raw strings because the client
// may omit them or send garbage.
type CheckinRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	ClassName  string `json:"class_name" validate:"required"`
	Year       string `json:"year" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Code       string `json:"code" validate:"required"`
	Token      string `json:"token" validate:"required"`
	StudentLat string `json:"student_lat"`
	StudentLng string `json:"student_lng"`

	DeviceStudentID string `json:"-"`
}

// CheckinResult describes an accepted submission.
type CheckinResult struct {
	Record   *models.AttendanceRecord `json:"record"`
	UnlockAt time.Time                `json:"unlock_at"`
	Distance *float64                 `json:"distance_meters,omitempty"`
}

// Admit runs the full gate sequence for one submission.
func (s *AdmissionService) Admit(ctx context.Context, req CheckinRequest) (*CheckinResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}

	now := time.Now().UTC()
	day := dateOf(now)

	// Today's code row doubles as the geofence anchor, so it is fetched up
	// front; the code itself is not compared until gate 4.
	sessionCode, err := s.codes.FindBySession(ctx, req.ClassName, req.Year, req.Subject, day)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session code")
	}

	// Gate 1: geofence. Skipped when either side has no coordinates.
	distance, err := s.geofenceGate(sessionCode, req)
	if err != nil {
		return s.reject(err)
	}

	// Gate 2: device identity.
	if req.DeviceStudentID != "" && req.DeviceStudentID != req.StudentID {
		return s.reject(appErrors.Clone(appErrors.ErrDeviceConflict,
			fmt.Sprintf("this device is locked to student %s", req.DeviceStudentID)))
	}

	// Gate 3: roster.
	student, err := s.roster.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.reject(appErrors.ErrUnknownStudent)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.ClassName != req.ClassName {
		return s.reject(appErrors.ErrClassMismatch)
	}

	// Gate 4: session code.
	if sessionCode == nil || sessionCode.Code != req.Code {
		return s.reject(appErrors.ErrInvalidSessionCode)
	}

	// Gate 5: one-shot token, bound to its issuing session tuple and day.
	token, err := s.tokens.FindByValue(ctx, req.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.reject(appErrors.ErrInvalidToken)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load token")
	}
	if token.Used || !token.MatchesSession(req.ClassName, req.Year, req.Subject, day) {
		return s.reject(appErrors.ErrInvalidToken)
	}

	// Gate 6: duplicate suppression. A friendly pre-check; the commit
	// transaction re-asserts it atomically.
	exists, err := s.ledger.Exists(ctx, req.StudentID, req.ClassName, req.Year, req.Subject, req.Code, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
	}
	if exists {
		return s.reject(appErrors.Clone(appErrors.ErrDuplicateAttendance,
			fmt.Sprintf("attendance already marked for %s today", student.FullName)))
	}

	// Gate 7: commit.
	record := &models.AttendanceRecord{
		StudentID:   student.ID,
		StudentName: student.FullName,
		ClassName:   req.ClassName,
		Year:        req.Year,
		Subject:     req.Subject,
		Code:        req.Code,
		MarkedAt:    now,
		MarkedOn:    day,
	}
	lock := &models.DeviceLock{
		StudentID: student.ID,
		UnlockAt:  now.Add(s.cfg.DeviceLockTTL),
	}
	if err := s.ledger.CommitAdmission(ctx, record, req.Token, lock); err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenAlreadyUsed):
			return s.reject(appErrors.ErrInvalidToken)
		case errors.Is(err, repository.ErrDuplicateRecord):
			return s.reject(appErrors.Clone(appErrors.ErrDuplicateAttendance,
				fmt.Sprintf("attendance already marked for %s today", student.FullName)))
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
		}
	}

	s.logger.Info("attendance admitted",
		zap.String("student_id", student.ID),
		zap.String("class", req.ClassName),
		zap.String("subject", req.Subject),
		zap.String("code", req.Code),
	)
	s.observe("accepted")

	return &CheckinResult{Record: record, UnlockAt: lock.UnlockAt, Distance: distance}, nil
}

// geofenceGate returns the computed distance when both sides supplied
// coordinates, or an error when the student is out of range or sent
// unparseable values. Missing values on either side skip the check.
func (s *AdmissionService) geofenceGate(code *models.SessionCode, req CheckinRequest) (*float64, error) {
	if code == nil {
		return nil, nil
	}
	anchorLat, anchorLng, ok := code.Anchor()
	if !ok || req.StudentLat == "" || req.StudentLng == "" {
		return nil, nil
	}

	lat, errLat := strconv.ParseFloat(req.StudentLat, 64)
	lng, errLng := strconv.ParseFloat(req.StudentLng, 64)
	if errLat != nil || errLng != nil {
		return nil, appErrors.ErrLocationUnavailable
	}

	d := geo.Distance(anchorLat, anchorLng, lat, lng)
	if d > s.cfg.GeofenceRadiusMeters {
		return nil, appErrors.Clone(appErrors.ErrGeofenceViolation,
			fmt.Sprintf("you are too far from the teacher (distance: %dm)", int(d)))
	}
	return &d, nil
}

func (s *AdmissionService) reject(err error) (*CheckinResult, error) {
	appErr := appErrors.FromError(err)
	s.observe(appErr.Code)
	s.logger.Info("attendance rejected", zap.String("reason", appErr.Code))
	return nil, err
}

func (s *AdmissionService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveAdmission(outcome)
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
