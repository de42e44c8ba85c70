package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	"github.com/qrmark/qrmark-api/internal/service"
	"github.com/qrmark/qrmark-api/pkg/config"
)

type fakeRoster struct {
	student *models.Student
}

func (f *fakeRoster) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if f.student == nil || f.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.student, nil
}

func (f *fakeRoster) CountByClass(ctx context.Context, className string) (int, error) {
	return 1, nil
}

func (f *fakeRoster) ListClasses(ctx context.Context) ([]string, error) {
	return []string{"10A"}, nil
}

type fakeCodes struct {
	code *models.SessionCode
}

func (f *fakeCodes) FindBySession(ctx context.Context, className, year, subject string, date time.Time) (*models.SessionCode, error) {
	if f.code == nil {
		return nil, sql.ErrNoRows
	}
	return f.code, nil
}

type fakeTokens struct {
	token *models.SessionToken
}

func (f *fakeTokens) FindByValue(ctx context.Context, value string) (*models.SessionToken, error) {
	if f.token == nil || f.token.Token != value {
		return nil, sql.ErrNoRows
	}
	return f.token, nil
}

type fakeLedger struct {
	exists    bool
	commitErr error
	committed bool
}

func (f *fakeLedger) Exists(ctx context.Context, studentID, className, year, subject, code string, day time.Time) (bool, error) {
	return f.exists, nil
}

func (f *fakeLedger) CommitAdmission(ctx context.Context, record *models.AttendanceRecord, tokenValue string, lock *models.DeviceLock) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func todayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func newCheckinFixture() (*CheckinHandler, *fakeLedger) {
	day := todayUTC()
	roster := &fakeRoster{student: &models.Student{ID: "stu-1", FullName: "Alice Tan", ClassName: "10A"}}
	codes := &fakeCodes{code: &models.SessionCode{ClassName: "10A", Year: "2026", Subject: "Math", Date: day, Code: "ABC123"}}
	tokens := &fakeTokens{token: &models.SessionToken{Token: "TOK45678", ClassName: "10A", Year: "2026", Subject: "Math", Date: day}}
	ledger := &fakeLedger{}

	cfg := config.AdmissionConfig{
		GeofenceRadiusMeters: 100,
		DeviceLockTTL:        40 * time.Minute,
		DeviceBindingTTL:     365 * 24 * time.Hour,
	}
	admission := service.NewAdmissionService(roster, codes, tokens, ledger, validator.New(), zap.NewNop(), nil, cfg)
	return NewCheckinHandler(admission, cfg), ledger
}

func checkinBody() []byte {
	body, _ := json.Marshal(map[string]string{
		"student_id": "stu-1",
		"class_name": "10A",
		"year":       "2026",
		"subject":    "Math",
		"code":       "ABC123",
		"token":      "TOK45678",
	})
	return body
}

func TestCheckinHandlerSuccessSetsCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, ledger := newCheckinFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/checkin", bytes.NewReader(checkinBody()))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Checkin(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, ledger.committed)

	cookies := rec.Result().Cookies()
	var sawSID, sawLock bool
	for _, cookie := range cookies {
		switch cookie.Name {
		case CookieStudentID:
			sawSID = true
			assert.Equal(t, "stu-1", cookie.Value)
			assert.Greater(t, cookie.MaxAge, 3600)
		case CookieLockUntil:
			sawLock = true
			assert.NotEmpty(t, cookie.Value)
			assert.Equal(t, int((40 * time.Minute).Seconds()), cookie.MaxAge)
		}
	}
	assert.True(t, sawSID)
	assert.True(t, sawLock)
}

func TestCheckinHandlerRejectSetsNoCookies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, ledger := newCheckinFixture()

	body, _ := json.Marshal(map[string]string{
		"student_id": "stu-1",
		"class_name": "10A",
		"year":       "2026",
		"subject":    "Math",
		"code":       "WRONG1",
		"token":      "TOK45678",
	})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/checkin", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Checkin(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, ledger.committed)
	assert.Empty(t, rec.Result().Cookies())
}

func TestCheckinHandlerForeignDeviceCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, ledger := newCheckinFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/checkin", bytes.NewReader(checkinBody()))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.AddCookie(&http.Cookie{Name: CookieStudentID, Value: "stu-2"})

	handler.Checkin(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, ledger.committed)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "stu-2"))
}

func TestCheckinHandlerDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, ledger := newCheckinFixture()
	ledger.exists = true

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/checkin", bytes.NewReader(checkinBody()))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Checkin(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckinHandlerMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newCheckinFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/attendance/checkin", bytes.NewReader([]byte("{not json")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Checkin(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
