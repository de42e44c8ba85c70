package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a teacher.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and teacher info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Teacher     TeacherInfo `json:"teacher"`
}

// TeacherInfo describes the authenticated teacher in responses.
type TeacherInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// JWTClaims represents the JWT payload for teacher access tokens.
type JWTClaims struct {
	TeacherID string `json:"teacher_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}
