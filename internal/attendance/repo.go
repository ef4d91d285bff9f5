package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repository persists students and attendance events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, index_number, first_name, last_name, email, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.IndexNumber, &st.FirstName, &st.LastName, &st.Email, &st.Status, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return st, err
}

// CreateStudent inserts a student and returns it with generated fields.
func (r *Repository) CreateStudent(ctx context.Context, st Student) (Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, index_number, first_name, last_name, email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+studentColumns,
		st.ID, st.IndexNumber, st.FirstName, st.LastName, st.Email, st.Status)
	created, err := scanStudent(row)
	if err != nil {
		return Student{}, mapWriteErr(err)
	}
	return created, nil
}

// GetStudent returns a student by index number.
func (r *Repository) GetStudent(ctx context.Context, indexNumber string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE index_number = $1`, indexNumber)
	return scanStudent(row)
}

// ListStudents returns students ordered by index number. A limit of zero
// or less returns every student from offset on.
func (r *Repository) ListStudents(ctx context.Context, limit, offset int) ([]Student, error) {
	query, args := listStudentsQuery(limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, st)
	}
	return res, rows.Err()
}

func listStudentsQuery(limit, offset int) (string, []any) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY index_number`
	var args []any
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $1`
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	return query, args
}

// CountStudents returns the number of registered students.
func (r *Repository) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

// UpdateStudent overwrites the mutable fields of the student with st.IndexNumber.
func (r *Repository) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET first_name = $2, last_name = $3, email = $4, status = $5, updated_at = NOW()
		WHERE index_number = $1
		RETURNING `+studentColumns,
		st.IndexNumber, st.FirstName, st.LastName, st.Email, st.Status)
	updated, err := scanStudent(row)
	if err != nil {
		return Student{}, mapWriteErr(err)
	}
	return updated, nil
}

// DeleteStudent removes a student and, by cascade, its events.
func (r *Repository) DeleteStudent(ctx context.Context, indexNumber string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE index_number = $1`, indexNumber)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const eventColumns = `e.id, e.student_id, s.index_number, e.day, e.status, e.entry_time, e.leave_time, e.source, e.updated_at`

func scanEvent(row scanner) (Event, error) {
	var evt Event
	err := row.Scan(&evt.ID, &evt.StudentID, &evt.IndexNumber, &evt.Day, &evt.Status, &evt.EntryTime, &evt.LeaveTime, &evt.Source, &evt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	return evt, err
}

// InsertEvent writes a new attendance event.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.UpdatedAt.IsZero() {
		evt.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_events (id, student_id, day, status, entry_time, leave_time, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, evt.ID, evt.StudentID, evt.Day, evt.Status, evt.EntryTime, evt.LeaveTime, evt.Source, evt.UpdatedAt)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return evt, nil
}

// RecentEvent returns the latest event with status for a student updated
// within [from, to], or nil when there is none.
func (r *Repository) RecentEvent(ctx context.Context, studentID, status string, from, to time.Time) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events e JOIN students s ON s.id = e.student_id
		WHERE e.student_id = $1 AND e.status = $2 AND e.updated_at BETWEEN $3 AND $4
		ORDER BY e.updated_at DESC
		LIMIT 1
	`, studentID, status, from, to)
	evt, err := scanEvent(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &evt, nil
}

// ListEventsForDay returns every event recorded for day.
func (r *Repository) ListEventsForDay(ctx context.Context, day time.Time) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM attendance_events e JOIN students s ON s.id = e.student_id
		WHERE e.day = $1
		ORDER BY e.updated_at
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
