package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	"github.com/qrmark/qrmark-api/internal/service"
)

type fakeAttendanceRepo struct {
	records    []models.AttendanceRecord
	lastFilter models.AttendanceFilter
}

func (f *fakeAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	f.lastFilter = filter
	return f.records, len(f.records), nil
}

func (f *fakeAttendanceRepo) CountSession(ctx context.Context, className, year, subject string, day time.Time) (int, error) {
	return len(f.records), nil
}

func newReportFixture() (*ReportHandler, *fakeAttendanceRepo) {
	attendance := &fakeAttendanceRepo{records: []models.AttendanceRecord{
		{StudentID: "stu-1", StudentName: "Alice Tan", ClassName: "10A", Year: "2026", Subject: "Math", Code: "ABC123", MarkedAt: time.Now().UTC()},
	}}
	roster := &fakeRoster{student: &models.Student{ID: "stu-1", ClassName: "10A"}}
	svc := service.NewReportService(attendance, roster, nil, nil, zap.NewNop(), time.Minute)
	return NewReportHandler(svc), attendance
}

func TestReportHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, attendance := newReportFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance?class=10A&date=2026-03-04&page=2&page_size=10", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10A", attendance.lastFilter.ClassName)
	require.NotNil(t, attendance.lastFilter.Date)
	assert.Equal(t, 2, attendance.lastFilter.Page)

	var envelope struct {
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestReportHandlerListBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newReportFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance?date=04-03-2026", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newReportFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/summary?class=10A&year=2026&subject=Math", nil)

	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.AttendanceSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Data.Marked)
	assert.Equal(t, 1, envelope.Data.Roster)
}

func TestReportHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newReportFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/attendance/export?format=csv", nil)

	handler.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Alice Tan")
}

func TestReportHandlerClasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newReportFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/classes", nil)

	handler.Classes(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "10A")
}
