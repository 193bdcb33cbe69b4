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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentDetailColumns = `s.id, s.code, s.full_name, s.email, s.gender, s.major_id, s.combo_id, s.curriculum_id,
        s.learned_semester, s.is_deleted, s.created_at, s.updated_at,
        m.name AS major_name, cb.name AS combo_name, cu.name AS curriculum_name`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
        LEFT JOIN majors m ON m.id = s.major_id
        LEFT JOIN combos cb ON cb.id = s.combo_id
        LEFT JOIN curriculums cu ON cu.id = s.curriculum_id`
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.Deleted != nil {
		conditions = append(conditions, fmt.Sprintf("s.is_deleted = $%d", len(args)+1))
		args = append(args, *filter.Deleted)
	} else {
		conditions = append(conditions, "s.is_deleted = FALSE")
	}
	if filter.MajorID != "" {
		conditions = append(conditions, fmt.Sprintf("s.major_id = $%d", len(args)+1))
		args = append(args, filter.MajorID)
	}
	if filter.CurriculumID != "" {
		conditions = append(conditions, fmt.Sprintf("s.curriculum_id = $%d", len(args)+1))
		args = append(args, filter.CurriculumID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR LOWER(s.code) LIKE $%d OR LOWER(s.email) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":  "s.full_name",
		"code":       "s.code",
		"created_at": "s.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, studentDetailColumns, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM students s
        LEFT JOIN majors m ON m.id = s.major_id
        LEFT JOIN combos cb ON cb.id = s.combo_id
        LEFT JOIN curriculums cu ON cu.id = s.curriculum_id
        WHERE s.id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCode checks if a student with the given code exists, optionally excluding an ID.
func (r *StudentRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student code: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, code, full_name, email, gender, major_id, combo_id, curriculum_id, learned_semester, is_deleted, created_at, updated_at)
        VALUES (:id, :code, :full_name, :email, :gender, :major_id, :combo_id, :curriculum_id, :learned_semester, :is_deleted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET code = :code, full_name = :full_name, email = :email, gender = :gender, major_id = :major_id, combo_id = :combo_id, learned_semester = :learned_semester, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// SetCurriculum assigns the full study-plan chain of a student in one
// update: the major, the combo within it and the combo's curriculum.
func (r *StudentRepository) SetCurriculum(ctx context.Context, id, majorID, comboID, curriculumID string) error {
	const query = `UPDATE students SET major_id = $2, combo_id = $3, curriculum_id = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, majorID, comboID, curriculumID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set student curriculum: %w", err)
	}
	return nil
}

// SoftDelete marks a student as deleted without removing the record.
func (r *StudentRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE students SET is_deleted = TRUE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// Restore clears the deletion flag of a soft-deleted student.
func (r *StudentRepository) Restore(ctx context.Context, id string) error {
	const query = `UPDATE students SET is_deleted = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("restore student: %w", err)
	}
	return nil
}
