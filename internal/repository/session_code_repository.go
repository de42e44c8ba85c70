package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrmark/qrmark-api/internal/models"
)

// SessionCodeRepository persists the rotating per-session class codes.
type SessionCodeRepository struct {
	db *sqlx.DB
}

// NewSessionCodeRepository constructs the repository.
func NewSessionCodeRepository(db *sqlx.DB) *SessionCodeRepository {
	return &SessionCodeRepository{db: db}
}

// Replace stores the code for its session tuple, removing any code already
// issued for the same (class, year, subject, day). Both statements run in
// one transaction so readers never observe two codes for a session.
func (r *SessionCodeRepository) Replace(ctx context.Context, code *models.SessionCode) (*models.SessionCode, error) {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace code: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del := `DELETE FROM session_codes
WHERE class_name = $1 AND year = $2 AND subject = $3 AND date = $4`
	if _, err := tx.ExecContext(ctx, del, code.ClassName, code.Year, code.Subject, code.Date); err != nil {
		return nil, fmt.Errorf("remove previous code: %w", err)
	}

	ins := `INSERT INTO session_codes (id, class_name, year, subject, date, code, anchor_lat, anchor_lng, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, ins,
		code.ID, code.ClassName, code.Year, code.Subject, code.Date,
		code.Code, code.AnchorLat, code.AnchorLng, code.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace code: %w", err)
	}
	return code, nil
}

// FindBySession returns the code issued for the given tuple and day.
// Callers translate sql.ErrNoRows into "no code issued today".
func (r *SessionCodeRepository) FindBySession(ctx context.Context, className, year, subject string, date time.Time) (*models.SessionCode, error) {
	var code models.SessionCode
	query := `SELECT id, class_name, year, subject, date, code, anchor_lat, anchor_lng, created_at
FROM session_codes
WHERE class_name = $1 AND year = $2 AND subject = $3 AND date = $4`
	if err := r.db.GetContext(ctx, &code, query, className, year, subject, date); err != nil {
		return nil, err
	}
	return &code, nil
}

// FindByID returns a code row by primary key.
func (r *SessionCodeRepository) FindByID(ctx context.Context, id string) (*models.SessionCode, error) {
	var code models.SessionCode
	query := `SELECT id, class_name, year, subject, date, code, anchor_lat, anchor_lng, created_at
FROM session_codes WHERE id = $1`
	if err := r.db.GetContext(ctx, &code, query, id); err != nil {
		return nil, err
	}
	return &code, nil
}

// List returns issued codes, newest first.
func (r *SessionCodeRepository) List(ctx context.Context, limit int) ([]models.SessionCode, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var codes []models.SessionCode
	query := `SELECT id, class_name, year, subject, date, code, anchor_lat, anchor_lng, created_at
FROM session_codes ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &codes, query, limit); err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return codes, nil
}
