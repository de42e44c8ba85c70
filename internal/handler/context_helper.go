package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qrmark/qrmark-api/internal/middleware"
	"github.com/qrmark/qrmark-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextTeacherKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
