package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/store"
	"github.com/lib/pq"
)

// Compile-time contract assertions.
var (
	_ store.Collection = (*Repository)(nil)
	_ store.Feed       = (*Listener)(nil)
)

// ChangeChannel is the NOTIFY channel raised on any write to the students table.
const ChangeChannel = "students_changed"

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id           UUID PRIMARY KEY,
	student_name TEXT NOT NULL,
	student_id   TEXT NOT NULL,
	course_name  TEXT NOT NULL,
	fee          DOUBLE PRECISION NOT NULL CHECK (fee >= 0),
	paid         DOUBLE PRECISION NOT NULL CHECK (paid >= 0 AND paid <= fee),
	remaining    DOUBLE PRECISION NOT NULL,
	agreement    TEXT NOT NULL,
	date         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS students_student_id_lower_idx ON students (LOWER(student_id));
CREATE OR REPLACE FUNCTION notify_students_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + ChangeChannel + `', TG_OP);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS students_changed ON students;
CREATE TRIGGER students_changed
	AFTER INSERT OR UPDATE OR DELETE OR TRUNCATE ON students
	FOR EACH STATEMENT EXECUTE FUNCTION notify_students_changed();`

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the students table, its unique id index and the change trigger
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Add inserts a new student record
func (r *Repository) Add(ctx context.Context, rec models.StudentRecord) error {
	query := `
		INSERT INTO students (id, student_name, student_id, course_name, fee, paid, remaining, agreement, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.StudentName, rec.StudentID, rec.CourseName,
		rec.Fee, rec.Paid, rec.Remaining, string(rec.Agreement), rec.Date, rec.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create student: %w", models.ErrDuplicateID)
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// List retrieves all students, newest first
func (r *Repository) List(ctx context.Context) ([]models.StudentRecord, error) {
	query := `
		SELECT id, student_name, student_id, course_name, fee, paid, remaining, agreement, date, created_at
		FROM students
		ORDER BY date DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	students := []models.StudentRecord{}
	for rows.Next() {
		var s models.StudentRecord
		var agreement string
		if err := rows.Scan(&s.ID, &s.StudentName, &s.StudentID, &s.CourseName,
			&s.Fee, &s.Paid, &s.Remaining, &agreement, &s.Date, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		s.Agreement = models.Agreement(agreement)
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// Delete removes a student by document id. The application never calls it; it
// exists for operator tooling and tests that exercise out-of-band removal.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("student not found")
	}
	return nil
}
