package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/export"
)

type reportAttendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	CountSession(ctx context.Context, className, year, subject string, day time.Time) (int, error)
}

type reportRosterRepository interface {
	CountByClass(ctx context.Context, className string) (int, error)
	ListClasses(ctx context.Context) ([]string, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool)
}

// ExportResult carries a rendered attendance export.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService serves teacher-facing attendance listings, per-session
// summaries and file exports.
type ReportService struct {
	attendance reportAttendanceRepository
	roster     reportRosterRepository
	cache      reportCache
	metrics    cacheObserver
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
	summaryTTL time.Duration
}

// NewReportService constructs a ReportService.
func NewReportService(
	attendance reportAttendanceRepository,
	roster reportRosterRepository,
	cache reportCache,
	metrics cacheObserver,
	logger *zap.Logger,
	summaryTTL time.Duration,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if summaryTTL <= 0 {
		summaryTTL = 5 * time.Minute
	}
	return &ReportService{
		attendance: attendance,
		roster:     roster,
		cache:      cache,
		metrics:    metrics,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
		summaryTTL: summaryTTL,
	}
}

// List returns attendance records matching the filter with total count.
func (s *ReportService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	records, total, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, total, nil
}

// Summary reports marked-vs-roster counts for one session day. Results are
// cached briefly; a summary going slightly stale is harmless.
func (s *ReportService) Summary(ctx context.Context, className, year, subject string, day time.Time) (*models.AttendanceSummary, error) {
	if className == "" || year == "" || subject == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class, year and subject are required")
	}
	day = dateOf(day)

	key := summaryCacheKey(className, year, subject, day)
	if s.cache != nil {
		var cached models.AttendanceSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.observeCache(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
		s.observeCache(false)
	}

	marked, err := s.attendance.CountSession(ctx, className, year, subject, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	roster, err := s.roster.CountByClass(ctx, className)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}

	summary := &models.AttendanceSummary{
		ClassName: className,
		Year:      year,
		Subject:   subject,
		Date:      day,
		Marked:    marked,
		Roster:    roster,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.summaryTTL); err != nil {
			s.logger.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Classes lists the distinct class names known to the roster.
func (s *ReportService) Classes(ctx context.Context) ([]string, error) {
	classes, err := s.roster.ListClasses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Export renders the filtered attendance log as csv or pdf.
func (s *ReportService) Export(ctx context.Context, format string, filter models.AttendanceFilter) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = 10000
	records, _, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	dataset := attendanceDataset(records)
	stamp := time.Now().UTC().Format("20060102_150405")

	switch strings.ToLower(format) {
	case "csv", "":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("attendance_%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case "pdf":
		data, err := s.pdf.Render(dataset, "Attendance Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("attendance_%s.pdf", stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func attendanceDataset(records []models.AttendanceRecord) export.Dataset {
	headers := []string{"Student ID", "Name", "Class", "Year", "Subject", "Code", "Marked At"}
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, map[string]string{
			"Student ID": rec.StudentID,
			"Name":       rec.StudentName,
			"Class":      rec.ClassName,
			"Year":       rec.Year,
			"Subject":    rec.Subject,
			"Code":       rec.Code,
			"Marked At":  rec.MarkedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func summaryCacheKey(className, year, subject string, day time.Time) string {
	return fmt.Sprintf("report:summary:%s:%s:%s:%s", className, year, subject, day.Format(models.DateLayout))
}

func (s *ReportService) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}
