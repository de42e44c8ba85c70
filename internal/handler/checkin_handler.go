package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qrmark/qrmark-api/internal/service"
	"github.com/qrmark/qrmark-api/pkg/config"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/response"
)

// Cookie names shared by the scan, check-in and unlock endpoints.
const (
	CookieStudentID = "sid"
	CookieLockUntil = "lock_until"
)

// CheckinHandler accepts attendance submissions and manages the device
// binding cookies.
type CheckinHandler struct {
	admission *service.AdmissionService
	cfg       config.AdmissionConfig
}

// NewCheckinHandler creates a new handler.
func NewCheckinHandler(admission *service.AdmissionService, cfg config.AdmissionConfig) *CheckinHandler {
	return &CheckinHandler{admission: admission, cfg: cfg}
}

// Checkin godoc
// @Summary Submit attendance
// @Description Run the admission gates and record attendance on success
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.CheckinRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /attendance/checkin [post]
func (h *CheckinHandler) Checkin(c *gin.Context) {
	var req service.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}

	if sid, err := c.Cookie(CookieStudentID); err == nil {
		req.DeviceStudentID = sid
	}

	res, err := h.admission.Admit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Bind the device to the student for a long time; the cooldown cookie
	// mirrors the server-side lock so the client can short-circuit.
	c.SetCookie(CookieStudentID, res.Record.StudentID, int(h.cfg.DeviceBindingTTL.Seconds()), "/", "", false, true)
	c.SetCookie(CookieLockUntil, strconv.FormatInt(res.UnlockAt.Unix(), 10), int(h.cfg.DeviceLockTTL.Seconds()), "/", "", false, true)

	response.Created(c, res)
}
