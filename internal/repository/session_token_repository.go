package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qrmark/qrmark-api/internal/models"
)

// SessionTokenRepository persists one-shot scan tokens.
type SessionTokenRepository struct {
	db *sqlx.DB
}

// NewSessionTokenRepository constructs the repository.
func NewSessionTokenRepository(db *sqlx.DB) *SessionTokenRepository {
	return &SessionTokenRepository{db: db}
}

// Insert stores a freshly minted, unused token.
func (r *SessionTokenRepository) Insert(ctx context.Context, token *models.SessionToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO session_tokens (token, class_name, year, subject, date, used, claimed_by, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, NULL, $6)`
	if _, err := r.db.ExecContext(ctx, query,
		token.Token, token.ClassName, token.Year, token.Subject, token.Date, token.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert session token: %w", err)
	}
	return nil
}

// FindByValue returns the token row regardless of used state.
func (r *SessionTokenRepository) FindByValue(ctx context.Context, value string) (*models.SessionToken, error) {
	var token models.SessionToken
	query := `SELECT token, class_name, year, subject, date, used, claimed_by, created_at
FROM session_tokens WHERE token = $1`
	if err := r.db.GetContext(ctx, &token, query, value); err != nil {
		return nil, err
	}
	return &token, nil
}

// Consume marks a token used and records its claimant. The conditional
// update is the serialization point: of N concurrent consumers exactly one
// sees a row affected.
func (r *SessionTokenRepository) Consume(ctx context.Context, value, studentID string) (bool, error) {
	query := `UPDATE session_tokens SET used = TRUE, claimed_by = $2
WHERE token = $1 AND used = FALSE`
	result, err := r.db.ExecContext(ctx, query, value, studentID)
	if err != nil {
		return false, fmt.Errorf("consume session token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume session token result: %w", err)
	}
	return affected == 1, nil
}
