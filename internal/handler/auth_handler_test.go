package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
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

type fakeTeacherRepo struct {
	teacher *models.Teacher
}

func (f *fakeTeacherRepo) FindByUsername(ctx context.Context, username string) (*models.Teacher, error) {
	if f.teacher == nil || f.teacher.Username != username {
		return nil, sql.ErrNoRows
	}
	return f.teacher, nil
}

func newAuthHandlerFixture(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &fakeTeacherRepo{teacher: &models.Teacher{
		ID: "tch-1", Username: "mrlim", PasswordHash: string(hash), FullName: "Mr Lim", Active: true,
	}}
	svc := service.NewAuthService(repo, validator.New(), zap.NewNop(), service.AuthConfig{Secret: "secret", Expiration: time.Hour})
	return NewAuthHandler(svc)
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandlerFixture(t)

	body, _ := json.Marshal(map[string]string{"username": "mrlim", "password": "password"})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "tch-1", envelope.Data.Teacher.ID)
}

func TestAuthHandlerLoginBadCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandlerFixture(t)

	body, _ := json.Marshal(map[string]string{"username": "mrlim", "password": "wrong"})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
