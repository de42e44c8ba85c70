package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qrmark/qrmark-api/internal/service"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
	"github.com/qrmark/qrmark-api/pkg/response"
)

// SessionCodeHandler manages rotating session codes and their QR images.
type SessionCodeHandler struct {
	service *service.SessionCodeService
}

// NewSessionCodeHandler creates a new handler.
func NewSessionCodeHandler(svc *service.SessionCodeService) *SessionCodeHandler {
	return &SessionCodeHandler{service: svc}
}

// Issue godoc
// @Summary Start a class session
// @Description Generate a fresh session code, replacing any code issued earlier today
// @Tags Codes
// @Accept json
// @Produce json
// @Param payload body service.IssueCodeRequest true "Session"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /codes [post]
func (h *SessionCodeHandler) Issue(c *gin.Context) {
	var req service.IssueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	code, err := h.service.Issue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, code)
}

// Current godoc
// @Summary Get today's code for a session
// @Tags Codes
// @Produce json
// @Param class query string true "Class name"
// @Param year query string true "Academic year"
// @Param subject query string true "Subject"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /codes/current [get]
func (h *SessionCodeHandler) Current(c *gin.Context) {
	code, err := h.service.Lookup(c.Request.Context(), c.Query("class"), c.Query("year"), c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, code, nil)
}

// Get godoc
// @Summary Get a session code by ID
// @Tags Codes
// @Produce json
// @Param id path string true "Code ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /codes/{id} [get]
func (h *SessionCodeHandler) Get(c *gin.Context) {
	code, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, code, nil)
}

// List godoc
// @Summary List recently issued codes
// @Tags Codes
// @Produce json
// @Param limit query int false "Max results"
// @Success 200 {object} response.Envelope
// @Router /codes [get]
func (h *SessionCodeHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	codes, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}

// QR godoc
// @Summary Get the QR image for a session code
// @Tags Codes
// @Produce png
// @Param id path string true "Code ID"
// @Success 200 {file} png
// @Failure 404 {object} response.Envelope
// @Router /codes/{id}/qr [get]
func (h *SessionCodeHandler) QR(c *gin.Context) {
	data, err := h.service.QRImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}
