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

// CourseRepository handles persistence for course offerings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseDetailColumns = `c.id, c.code, c.subject_id, c.semester_id, c.capacity, c.created_at, c.updated_at,
        s.code AS subject_code, s.name AS subject_name, sem.name AS semester_name`

// List returns courses matching filters with pagination metadata.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c
        JOIN subjects s ON s.id = c.subject_id
        JOIN semesters sem ON sem.id = c.semester_id`
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("c.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("c.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.code) LIKE $%d OR LOWER(s.name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"code":       "c.code",
		"subject":    "s.name",
		"created_at": "c.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "c.created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", courseDetailColumns, base, column, order, size, offset)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// FindByID returns a course detail by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM courses c
        JOIN subjects s ON s.id = c.subject_id
        JOIN semesters sem ON sem.id = c.semester_id
        WHERE c.id = $1`, courseDetailColumns)
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListBySubjects returns the active-semester offerings for a set of
// subjects. Past and future terms never show up as enrollable.
func (r *CourseRepository) ListBySubjects(ctx context.Context, subjectIDs []string) ([]models.CourseDetail, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s
        FROM courses c
        JOIN subjects s ON s.id = c.subject_id
        JOIN semesters sem ON sem.id = c.semester_id
        WHERE sem.is_active = TRUE AND c.subject_id IN (?)
        ORDER BY s.code ASC, c.code ASC`, courseDetailColumns), subjectIDs)
	if err != nil {
		return nil, fmt.Errorf("build courses by subjects query: %w", err)
	}
	query = r.db.Rebind(query)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses by subjects: %w", err)
	}
	return courses, nil
}

// ExistsByCode checks uniqueness of course code within a semester.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, semesterID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE LOWER(code) = LOWER($1) AND semester_id = $2"
	args := []interface{}{code, semesterID}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, subject_id, semester_id, capacity, created_at, updated_at)
        VALUES (:id, :code, :subject_id, :semester_id, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, subject_id = :subject_id, semester_id = :semester_id, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course record.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// CountEnrollments returns how many enrollments reference the course.
func (r *CourseRepository) CountEnrollments(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count course enrollments: %w", err)
	}
	return count, nil
}
