package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrmark/qrmark-api/internal/service"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/response"
)

// UnlockHandler issues signed unlock links (teacher only) and redeems them
// (public, reached from the link itself).
type UnlockHandler struct {
	service *service.UnlockService
}

// NewUnlockHandler creates a new handler.
func NewUnlockHandler(svc *service.UnlockService) *UnlockHandler {
	return &UnlockHandler{service: svc}
}

// Issue godoc
// @Summary Issue a device unlock link
// @Description Create a short-lived signed link that releases a student's device binding
// @Tags Unlock
// @Accept json
// @Produce json
// @Param payload body object true "Student"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /unlock-links [post]
func (h *UnlockHandler) Issue(c *gin.Context) {
	var payload struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id is required"))
		return
	}

	link, err := h.service.Issue(c.Request.Context(), payload.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var meta map[string]interface{}
	if claims := claimsFromContext(c); claims != nil {
		meta = map[string]interface{}{"issued_by": claims.Username}
	}
	response.JSON(c, http.StatusCreated, link, nil, meta)
}

// Redeem godoc
// @Summary Redeem a device unlock link
// @Description Verify the signed token and clear the device binding cookies
// @Tags Unlock
// @Produce json
// @Param token path string true "Unlock token"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /unlock/{token} [get]
func (h *UnlockHandler) Redeem(c *gin.Context) {
	studentID, err := h.service.Redeem(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	// Expire both binding cookies so the device is free again.
	c.SetCookie(CookieStudentID, "", -1, "/", "", false, true)
	c.SetCookie(CookieLockUntil, "", -1, "/", "", false, true)

	response.JSON(c, http.StatusOK, gin.H{"student_id": studentID, "unlocked": true}, nil)
}
