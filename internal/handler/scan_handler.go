package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qrmark/qrmark-api/internal/service"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/response"
)

// ScanHandler serves the QR landing endpoint. A scan verifies the embedded
// code is still current, honours any device cooldown, and hands the client
// a one-shot token for the actual check-in.
type ScanHandler struct {
	codes  *service.SessionCodeService
	tokens *service.SessionTokenService
	locks  *service.DeviceLockService
}

// NewScanHandler creates a new handler.
func NewScanHandler(codes *service.SessionCodeService, tokens *service.SessionTokenService, locks *service.DeviceLockService) *ScanHandler {
	return &ScanHandler{codes: codes, tokens: tokens, locks: locks}
}

// ScanPayload is handed to the client after a successful scan.
type ScanPayload struct {
	ClassName      string    `json:"class_name"`
	Year           string    `json:"year"`
	Subject        string    `json:"subject"`
	Code           string    `json:"code"`
	Token          string    `json:"token"`
	BoundStudentID string    `json:"bound_student_id,omitempty"`
	ScannedAt      time.Time `json:"scanned_at"`
}

// Scan godoc
// @Summary Resolve a scanned QR link
// @Description Validate the session code and issue a one-shot check-in token
// @Tags Attendance
// @Produce json
// @Param class query string true "Class name"
// @Param year query string true "Academic year"
// @Param subject query string true "Subject"
// @Param code query string true "Session code"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /scan [get]
func (h *ScanHandler) Scan(c *gin.Context) {
	className := c.Query("class")
	year := c.Query("year")
	subject := c.Query("subject")
	code := c.Query("code")
	if className == "" || year == "" || subject == "" || code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class, year, subject and code are required"))
		return
	}

	boundStudentID, _ := c.Cookie(CookieStudentID)
	if boundStudentID != "" {
		lock, err := h.locks.Check(c.Request.Context(), boundStudentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if lock != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrDeviceCoolingDown,
				fmt.Sprintf("this device can mark attendance again at %s", lock.UnlockAt.UTC().Format(time.RFC3339))))
			return
		}
	}

	current, err := h.codes.Lookup(c.Request.Context(), className, year, subject)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
			response.Error(c, appErrors.ErrInvalidSessionCode)
			return
		}
		response.Error(c, err)
		return
	}
	if current.Code != code {
		response.Error(c, appErrors.ErrInvalidSessionCode)
		return
	}

	token, err := h.tokens.Issue(c.Request.Context(), className, year, subject)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, ScanPayload{
		ClassName:      className,
		Year:           year,
		Subject:        subject,
		Code:           code,
		Token:          token.Token,
		BoundStudentID: boundStudentID,
		ScannedAt:      time.Now().UTC(),
	}, nil)
}
