package unlock

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken is returned for every redemption failure: malformed
// encoding, signature mismatch, or expiry in the past. Callers must not
// distinguish between them.
var ErrInvalidToken = errors.New("invalid or expired unlock token")

// Signer mints and verifies device-unlock capabilities. Tokens are
// self-contained: student ID plus unix expiry, authenticated with
// HMAC-SHA256 under a server-held secret. Nothing is persisted.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue returns a URL-safe capability for the given student ID along with
// its expiry time.
func (s *Signer) Issue(studentID string) (string, time.Time, error) {
	if studentID == "" {
		return "", time.Time{}, fmt.Errorf("student ID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(studentID))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encodedID, ts, s.sign(encodedID, ts)}, ".")
	return token, expiresAt, nil
}

// Redeem validates a capability and returns the embedded student ID.
func (s *Signer) Redeem(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	encodedID, ts, signature := parts[0], parts[1], parts[2]

	expected := s.sign(encodedID, ts)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", ErrInvalidToken
	}

	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if time.Now().Unix() > expUnix {
		return "", ErrInvalidToken
	}

	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(rawID), nil
}

func (s *Signer) sign(encodedID, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedID + "|" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}
