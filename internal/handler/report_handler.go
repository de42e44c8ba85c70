package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qrmark/qrmark-api/internal/models"
	"github.com/qrmark/qrmark-api/internal/service"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/response"
)

// ReportHandler exposes attendance listings, summaries and exports.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

func attendanceFilterFromQuery(c *gin.Context) (models.AttendanceFilter, error) {
	filter := models.AttendanceFilter{
		ClassName: c.Query("class"),
		Year:      c.Query("year"),
		Subject:   c.Query("subject"),
		StudentID: c.Query("student_id"),
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.ParseInLocation(models.DateLayout, raw, time.UTC)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		filter.Date = &day
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return filter, nil
}

// List godoc
// @Summary List attendance records
// @Tags Reports
// @Produce json
// @Param class query string false "Class name"
// @Param year query string false "Academic year"
// @Param subject query string false "Subject"
// @Param student_id query string false "Student ID"
// @Param date query string false "Day (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *ReportHandler) List(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	pagination := models.NewPagination(filter.Page, filter.PageSize, total)
	response.JSON(c, http.StatusOK, records, &pagination)
}

// Summary godoc
// @Summary Marked-versus-roster counts for one session day
// @Tags Reports
// @Produce json
// @Param class query string true "Class name"
// @Param year query string true "Academic year"
// @Param subject query string true "Subject"
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	day := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, raw, time.UTC)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	summary, err := h.service.Summary(c.Request.Context(), c.Query("class"), c.Query("year"), c.Query("subject"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export attendance records
// @Tags Reports
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /attendance/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filter, err := attendanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.Export(c.Request.Context(), c.DefaultQuery("format", "csv"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, res.Data)
}

// Classes godoc
// @Summary List known class names
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ReportHandler) Classes(c *gin.Context) {
	classes, err := h.service.Classes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}
