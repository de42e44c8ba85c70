package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/qrmark/qrmark-api/internal/models"
	"github.com/qrmark/qrmark-api/internal/service"
)

type staticTeacherRepo struct {
	teacher *models.Teacher
}

func (s *staticTeacherRepo) FindByUsername(ctx context.Context, username string) (*models.Teacher, error) {
	if s.teacher == nil || s.teacher.Username != username {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

func setupJWT(t *testing.T) (*service.AuthService, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &staticTeacherRepo{teacher: &models.Teacher{ID: "tch-1", Username: "mrlim", PasswordHash: string(hash), Active: true}}
	svc := service.NewAuthService(repo, validator.New(), zap.NewNop(), service.AuthConfig{Secret: "secret", Expiration: time.Hour})

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "mrlim", Password: "password"})
	require.NoError(t, err)
	return svc, res.AccessToken
}

func TestJWTMiddlewareAllowsValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, token := setupJWT(t)

	r := gin.New()
	r.Use(JWT(svc))
	r.GET("/protected", func(c *gin.Context) {
		claims, _ := c.Get(ContextTeacherKey)
		jwtClaims := claims.(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"teacher_id": jwtClaims.TeacherID})
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tch-1")
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := setupJWT(t)

	r := gin.New()
	r.Use(JWT(svc))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, token := setupJWT(t)

	r := gin.New()
	r.Use(JWT(svc))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", token)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTMiddlewareRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := setupJWT(t)

	r := gin.New()
	r.Use(JWT(svc))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
