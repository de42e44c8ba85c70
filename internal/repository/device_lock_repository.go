package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrmark/qrmark-api/internal/models"
)

// DeviceLockRepository persists server-side cooldown locks.
type DeviceLockRepository struct {
	db *sqlx.DB
}

// NewDeviceLockRepository constructs the repository.
func NewDeviceLockRepository(db *sqlx.DB) *DeviceLockRepository {
	return &DeviceLockRepository{db: db}
}

// FindActive purges every expired lock row (for all students, not just the
// queried one) and then returns the student's unexpired lock, if any. The
// purge piggybacks on reads; there is no background sweeper.
func (r *DeviceLockRepository) FindActive(ctx context.Context, studentID string, now time.Time) (*models.DeviceLock, error) {
	purge := `DELETE FROM device_locks WHERE unlock_at <= $1`
	if _, err := r.db.ExecContext(ctx, purge, now); err != nil {
		return nil, fmt.Errorf("purge expired locks: %w", err)
	}

	var lock models.DeviceLock
	query := `SELECT id, student_id, unlock_at, created_at FROM device_locks
WHERE student_id = $1 AND unlock_at > $2
ORDER BY unlock_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &lock, query, studentID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active lock: %w", err)
	}
	return &lock, nil
}

// Insert appends a lock row. Stale rows for the same student are left for
// the next FindActive to sweep.
func (r *DeviceLockRepository) Insert(ctx context.Context, lock *models.DeviceLock) error {
	if lock.ID == "" {
		lock.ID = uuid.NewString()
	}
	if lock.CreatedAt.IsZero() {
		lock.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO device_locks (id, student_id, unlock_at, created_at)
VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, lock.ID, lock.StudentID, lock.UnlockAt, lock.CreatedAt); err != nil {
		return fmt.Errorf("insert device lock: %w", err)
	}
	return nil
}
