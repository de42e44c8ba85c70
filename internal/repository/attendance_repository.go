package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrmark/qrmark-api/internal/models"
)

// Sentinel errors surfaced by CommitAdmission when the transaction loses a
// race that the earlier read-only gates could not see.
var (
	ErrDuplicateRecord  = errors.New("attendance record already exists")
	ErrTokenAlreadyUsed = errors.New("session token already consumed")
)

// AttendanceRepository owns the append-only attendance ledger and the
// admission commit transaction.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Exists reports whether a ledger row already exists for the session key.
func (r *AttendanceRepository) Exists(ctx context.Context, studentID, className, year, subject, code string, day time.Time) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM attendance_records
WHERE student_id = $1 AND class_name = $2 AND year = $3 AND subject = $4 AND code = $5 AND marked_on = $6`
	if err := r.db.GetContext(ctx, &count, query, studentID, className, year, subject, code, day); err != nil {
		return false, fmt.Errorf("check duplicate attendance: %w", err)
	}
	return count > 0, nil
}

// CommitAdmission finalises an accepted submission in one transaction:
// consume the scan token, append the ledger row, insert the device lock.
// The conditional token update and the ledger's unique index make the
// read-modify-write pairs race-safe; losing either one rolls everything
// back, so a reject never leaves partial state.
func (r *AttendanceRepository) CommitAdmission(ctx context.Context, record *models.AttendanceRecord, tokenValue string, lock *models.DeviceLock) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if lock.ID == "" {
		lock.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.MarkedAt.IsZero() {
		record.MarkedAt = now
	}
	if lock.CreatedAt.IsZero() {
		lock.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin admission commit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	consume := `UPDATE session_tokens SET used = TRUE, claimed_by = $2
WHERE token = $1 AND used = FALSE`
	result, err := tx.ExecContext(ctx, consume, tokenValue, record.StudentID)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume token result: %w", err)
	}
	if affected == 0 {
		return ErrTokenAlreadyUsed
	}

	insert := `INSERT INTO attendance_records (id, student_id, student_name, class_name, year, subject, code, marked_at, marked_on)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (student_id, class_name, year, subject, marked_on, code) DO NOTHING`
	result, err = tx.ExecContext(ctx, insert,
		record.ID, record.StudentID, record.StudentName, record.ClassName,
		record.Year, record.Subject, record.Code, record.MarkedAt, record.MarkedOn,
	)
	if err != nil {
		return fmt.Errorf("append attendance record: %w", err)
	}
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append attendance result: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateRecord
	}

	lockInsert := `INSERT INTO device_locks (id, student_id, unlock_at, created_at)
VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, lockInsert, lock.ID, lock.StudentID, lock.UnlockAt, lock.CreatedAt); err != nil {
		return fmt.Errorf("insert device lock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit admission: %w", err)
	}
	return nil
}

// List returns ledger rows matching the provided filter, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ClassName != "" {
		where = append(where, fmt.Sprintf("class_name = $%d", len(args)+1))
		args = append(args, filter.ClassName)
	}
	if filter.Year != "" {
		where = append(where, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Subject != "" {
		where = append(where, fmt.Sprintf("subject = $%d", len(args)+1))
		args = append(args, filter.Subject)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Date != nil {
		where = append(where, fmt.Sprintf("marked_on = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_id, student_name, class_name, year, subject, code, marked_at, marked_on
FROM attendance_records WHERE %s
ORDER BY marked_at DESC
LIMIT %d OFFSET %d`, whereClause, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// CountSession returns the number of ledger rows for one class session day.
func (r *AttendanceRepository) CountSession(ctx context.Context, className, year, subject string, day time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM attendance_records
WHERE class_name = $1 AND year = $2 AND subject = $3 AND marked_on = $4`
	if err := r.db.GetContext(ctx, &count, query, className, year, subject, day); err != nil {
		return 0, fmt.Errorf("count session attendance: %w", err)
	}
	return count, nil
}
