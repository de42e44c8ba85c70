package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
)

type mockAttendanceRepo struct {
	records []models.AttendanceRecord
	total   int
	count   int

	lastFilter models.AttendanceFilter
	countCalls int
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	m.lastFilter = filter
	return m.records, m.total, nil
}

func (m *mockAttendanceRepo) CountSession(ctx context.Context, className, year, subject string, day time.Time) (int, error) {
	m.countCalls++
	return m.count, nil
}

type mockReportRoster struct {
	classes []string
	size    int
}

func (m *mockReportRoster) CountByClass(ctx context.Context, className string) (int, error) {
	return m.size, nil
}

func (m *mockReportRoster) ListClasses(ctx context.Context) ([]string, error) {
	return m.classes, nil
}

type memoryCache struct {
	store map[string][]byte
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.store == nil {
		c.store = make(map[string][]byte)
	}
	c.store[key] = raw
	return nil
}

type mockCacheMetrics struct {
	hits   int
	misses int
}

func (m *mockCacheMetrics) RecordCacheOperation(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func sampleRecords() []models.AttendanceRecord {
	return []models.AttendanceRecord{
		{StudentID: "stu-1", StudentName: "Alice Tan", ClassName: "10A", Year: "2026", Subject: "Math", Code: "ABC123", MarkedAt: time.Date(2026, 3, 4, 8, 30, 0, 0, time.UTC)},
		{StudentID: "stu-2", StudentName: "Ben Ong", ClassName: "10A", Year: "2026", Subject: "Math", Code: "ABC123", MarkedAt: time.Date(2026, 3, 4, 8, 32, 0, 0, time.UTC)},
	}
}

func TestReportListDefaultsPagination(t *testing.T) {
	attendance := &mockAttendanceRepo{records: sampleRecords(), total: 2}
	svc := NewReportService(attendance, &mockReportRoster{}, nil, nil, zap.NewNop(), time.Minute)

	records, total, err := svc.List(context.Background(), models.AttendanceFilter{ClassName: "10A"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, attendance.lastFilter.Page)
	assert.Equal(t, 50, attendance.lastFilter.PageSize)
}

func TestReportSummaryComputesAndCaches(t *testing.T) {
	attendance := &mockAttendanceRepo{count: 18}
	roster := &mockReportRoster{size: 30}
	cache := &memoryCache{}
	metrics := &mockCacheMetrics{}
	svc := NewReportService(attendance, roster, cache, metrics, zap.NewNop(), time.Minute)

	day := time.Date(2026, 3, 4, 10, 15, 0, 0, time.UTC)

	first, err := svc.Summary(context.Background(), "10A", "2026", "Math", day)
	require.NoError(t, err)
	assert.Equal(t, 18, first.Marked)
	assert.Equal(t, 30, first.Roster)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), first.Date)

	second, err := svc.Summary(context.Background(), "10A", "2026", "Math", day)
	require.NoError(t, err)
	assert.Equal(t, first.Marked, second.Marked)

	// Second call must come from the cache.
	assert.Equal(t, 1, attendance.countCalls)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestReportSummaryRequiresSession(t *testing.T) {
	svc := NewReportService(&mockAttendanceRepo{}, &mockReportRoster{}, nil, nil, zap.NewNop(), time.Minute)

	_, err := svc.Summary(context.Background(), "", "2026", "Math", time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportExportCSV(t *testing.T) {
	attendance := &mockAttendanceRepo{records: sampleRecords(), total: 2}
	svc := NewReportService(attendance, &mockReportRoster{}, nil, nil, zap.NewNop(), time.Minute)

	res, err := svc.Export(context.Background(), "csv", models.AttendanceFilter{ClassName: "10A"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", res.ContentType)
	assert.True(t, strings.HasSuffix(res.Filename, ".csv"))

	body := string(res.Data)
	assert.Contains(t, body, "Student ID,Name,Class,Year,Subject,Code,Marked At")
	assert.Contains(t, body, "Alice Tan")
	assert.Contains(t, body, "Ben Ong")
}

func TestReportExportPDF(t *testing.T) {
	attendance := &mockAttendanceRepo{records: sampleRecords(), total: 2}
	svc := NewReportService(attendance, &mockReportRoster{}, nil, nil, zap.NewNop(), time.Minute)

	res, err := svc.Export(context.Background(), "pdf", models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, strings.HasPrefix(string(res.Data), "%PDF"))
}

func TestReportExportUnknownFormat(t *testing.T) {
	svc := NewReportService(&mockAttendanceRepo{}, &mockReportRoster{}, nil, nil, zap.NewNop(), time.Minute)

	_, err := svc.Export(context.Background(), "xlsx", models.AttendanceFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportClasses(t *testing.T) {
	roster := &mockReportRoster{classes: []string{"10A", "10B"}}
	svc := NewReportService(&mockAttendanceRepo{}, roster, nil, nil, zap.NewNop(), time.Minute)

	classes, err := svc.Classes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"10A", "10B"}, classes)
}
