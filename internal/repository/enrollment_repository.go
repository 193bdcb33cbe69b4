package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zus-pop/academix-api/internal/models"
)

// EnrollmentRepository manages persistence for enrollments and their
// attendance sessions.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.student_id, e.course_id, e.status, e.grades, e.created_at, e.updated_at,
        st.code AS student_code, st.full_name AS student_name,
        c.code AS course_code, s.code AS subject_code, s.name AS subject_name, sem.name AS semester_name`

const enrollmentDetailJoins = `FROM enrollments e
        JOIN students st ON st.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        JOIN subjects s ON s.id = c.subject_id
        JOIN semesters sem ON sem.id = c.semester_id`

// List returns enrollments matching the provided filters.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := enrollmentDetailJoins
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"student":    "st.full_name",
		"course":     "c.code",
		"status":     "e.status",
		"created_at": "e.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "e.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", enrollmentDetailColumns, base, column, order, size, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment detail by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.id = $1", enrollmentDetailColumns, enrollmentDetailJoins)
	var enrollment models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns every enrollment of a student with course context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.student_id = $1 ORDER BY e.created_at ASC", enrollmentDetailColumns, enrollmentDetailJoins)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ExistsByStudentAndCourse reports whether the student already holds an
// enrollment in the course.
func (r *EnrollmentRepository) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// CountByCourse returns how many enrollments the course currently holds.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}

// Create inserts an enrollment together with its attendance sessions in
// a single transaction. Sessions are numbered 1..sessions with NOT YET
// status.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment, sessions int) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentInProgress
	}
	if enrollment.Grades == nil {
		enrollment.Grades = models.GradeEntries{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create enrollment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertEnrollment = `INSERT INTO enrollments (id, student_id, course_id, status, grades, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :grades, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertEnrollment, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	const insertAttendance = `INSERT INTO attendances (id, enrollment_id, session, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)`
	for session := 1; session <= sessions; session++ {
		if _, err := tx.ExecContext(ctx, insertAttendance, uuid.NewString(), enrollment.ID, session, models.AttendanceNotYet, now); err != nil {
			return fmt.Errorf("create attendance session %d: %w", session, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create enrollment: %w", err)
	}
	return nil
}

// UpdateGrades replaces the grade array and derived status of an enrollment.
func (r *EnrollmentRepository) UpdateGrades(ctx context.Context, id string, grades models.GradeEntries, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET grades = $2, status = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, grades, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment grades: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an enrollment and its attendance sessions in a single
// transaction.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete enrollment: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendances WHERE enrollment_id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment attendances: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete enrollment: %w", err)
	}
	return nil
}

// ListForExport returns every enrollment matching the optional scoping
// parameters, without pagination. Used by the report export pipeline.
func (r *EnrollmentRepository) ListForExport(ctx context.Context, semesterID string, courseID, studentID *string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE 1=1", enrollmentDetailColumns, enrollmentDetailJoins)
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
	query += " ORDER BY st.code ASC, c.code ASC"

	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments for export: %w", err)
	}
	return rows, nil
}
