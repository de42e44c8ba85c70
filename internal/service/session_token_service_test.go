package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qrmark/qrmark-api/internal/models"
	appErrors "github.com/qrmark/qrmark-api/pkg/errors"
)

type mockTokenRepo struct {
	inserted []*models.SessionToken
	err      error
}

func (m *mockTokenRepo) Insert(ctx context.Context, token *models.SessionToken) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, token)
	return nil
}

func (m *mockTokenRepo) FindByValue(ctx context.Context, value string) (*models.SessionToken, error) {
	for _, tok := range m.inserted {
		if tok.Token == value {
			return tok, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestSessionTokenIssue(t *testing.T) {
	repo := &mockTokenRepo{}
	svc := NewSessionTokenService(repo, validator.New(), zap.NewNop(), 8)

	token, err := svc.Issue(context.Background(), "10A", "2026", "Math")
	require.NoError(t, err)

	assert.Regexp(t, "^[A-Z0-9]{8}$", token.Token)
	assert.Equal(t, "10A", token.ClassName)
	assert.False(t, token.Used)
	assert.Equal(t, time.UTC, token.Date.Location())
	require.Len(t, repo.inserted, 1)
}

func TestSessionTokenIssueFreshPerScan(t *testing.T) {
	repo := &mockTokenRepo{}
	svc := NewSessionTokenService(repo, validator.New(), zap.NewNop(), 8)

	first, err := svc.Issue(context.Background(), "10A", "2026", "Math")
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), "10A", "2026", "Math")
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, repo.inserted, 2)
}

func TestSessionTokenIssueRequiresSession(t *testing.T) {
	svc := NewSessionTokenService(&mockTokenRepo{}, validator.New(), zap.NewNop(), 8)

	_, err := svc.Issue(context.Background(), "", "2026", "Math")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
