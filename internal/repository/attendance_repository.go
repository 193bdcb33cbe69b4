package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zus-pop/academix-api/internal/models"
)

// AttendanceRepository manages persistence for attendance sessions.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance records matching the provided filters.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	base := "FROM attendances WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "session"
	}
	allowedSorts := map[string]bool{
		"session":    true,
		"status":     true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "session"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, enrollment_id, session, status, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var attendances []models.Attendance
	if err := r.db.SelectContext(ctx, &attendances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendances: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendances: %w", err)
	}
	return attendances, total, nil
}

// FindByID returns an attendance record by id.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	const query = `SELECT id, enrollment_id, session, status, created_at, updated_at FROM attendances WHERE id = $1`
	var attendance models.Attendance
	if err := r.db.GetContext(ctx, &attendance, query, id); err != nil {
		return nil, err
	}
	return &attendance, nil
}

// ListByEnrollment returns all sessions of an enrollment in order.
func (r *AttendanceRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Attendance, error) {
	const query = `SELECT id, enrollment_id, session, status, created_at, updated_at FROM attendances WHERE enrollment_id = $1 ORDER BY session ASC`
	var attendances []models.Attendance
	if err := r.db.SelectContext(ctx, &attendances, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment attendances: %w", err)
	}
	return attendances, nil
}

// UpdateStatus changes the status of a single attendance session.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	const query = `UPDATE attendances SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update attendance status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForExport returns attendance sessions joined with enrollment context,
// scoped by the optional parameters, without pagination.
func (r *AttendanceRepository) ListForExport(ctx context.Context, semesterID string, courseID, studentID *string) ([]models.AttendanceDetail, error) {
	query := `SELECT a.id, a.enrollment_id, a.session, a.status, a.created_at, a.updated_at,
        st.code AS student_code, st.full_name AS student_name,
        c.code AS course_code, s.code AS subject_code, sem.name AS semester_name
        FROM attendances a
        JOIN enrollments e ON e.id = a.enrollment_id
        JOIN students st ON st.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        JOIN subjects s ON s.id = c.subject_id
        JOIN semesters sem ON sem.id = c.semester_id
        WHERE 1=1`
	var args []interface{}
	if semesterID != "" {
		args = append(args, semesterID)
		query += fmt.Sprintf(" AND c.semester_id = $%d", len(args))
	}
	if courseID != nil && *courseID != "" {
		args = append(args, *courseID)
		query += fmt.Sprintf(" AND e.course_id = $%d", len(args))
	}
	if studentID != nil && *studentID != "" {
		args = append(args, *studentID)
		query += fmt.Sprintf(" AND e.student_id = $%d", len(args))
	}
	query += " ORDER BY st.code ASC, c.code ASC, a.session ASC"

	var rows []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendances for export: %w", err)
	}
	return rows, nil
}
