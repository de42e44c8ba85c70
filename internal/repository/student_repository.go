package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/qrmark/qrmark-api/internal/models"
)

// StudentRepository reads the roster. The attendance pipeline never writes
// students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a single roster entry.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	query := `SELECT id, full_name, class_name, created_at FROM students WHERE id = $1`
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListClasses returns the distinct class names present in the roster.
func (r *StudentRepository) ListClasses(ctx context.Context) ([]string, error) {
	var classes []string
	query := `SELECT DISTINCT class_name FROM students ORDER BY class_name`
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// CountByClass returns the roster size for one class.
func (r *StudentRepository) CountByClass(ctx context.Context, className string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM students WHERE class_name = $1`
	if err := r.db.GetContext(ctx, &count, query, className); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}
