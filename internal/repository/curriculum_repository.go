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

// CurriculumRepository handles persistence for curriculums and their subject slots.
type CurriculumRepository struct {
	db *sqlx.DB
}

// NewCurriculumRepository creates a new repository instance.
func NewCurriculumRepository(db *sqlx.DB) *CurriculumRepository {
	return &CurriculumRepository{db: db}
}

// List returns curriculums matching filters with pagination metadata.
func (r *CurriculumRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Curriculum, int, error) {
	base := "FROM curriculums WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"code":       true,
		"name":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
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

	query := fmt.Sprintf("SELECT id, code, name, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var curriculums []models.Curriculum
	if err := r.db.SelectContext(ctx, &curriculums, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list curriculums: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count curriculums: %w", err)
	}

	return curriculums, total, nil
}

// FindByID returns a curriculum by id without its subject slots.
func (r *CurriculumRepository) FindByID(ctx context.Context, id string) (*models.Curriculum, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM curriculums WHERE id = $1`
	var curriculum models.Curriculum
	if err := r.db.GetContext(ctx, &curriculum, query, id); err != nil {
		return nil, err
	}
	return &curriculum, nil
}

// ListSubjects returns the subject slots of a curriculum ordered by semester number.
func (r *CurriculumRepository) ListSubjects(ctx context.Context, curriculumID string) ([]models.CurriculumSubject, error) {
	const query = `SELECT cs.id, cs.curriculum_id, cs.subject_id, cs.semester_number, cs.created_at,
        s.code AS subject_code, s.name AS subject_name
        FROM curriculum_subjects cs
        JOIN subjects s ON s.id = cs.subject_id
        WHERE cs.curriculum_id = $1
        ORDER BY cs.semester_number ASC, s.code ASC`
	var subjects []models.CurriculumSubject
	if err := r.db.SelectContext(ctx, &subjects, query, curriculumID); err != nil {
		return nil, fmt.Errorf("list curriculum subjects: %w", err)
	}
	return subjects, nil
}

// ExistsByCode checks uniqueness of curriculum code.
func (r *CurriculumRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM curriculums WHERE LOWER(code) = LOWER($1)"
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
		return false, fmt.Errorf("check curriculum code: %w", err)
	}
	return true, nil
}

// HasSubject reports whether the curriculum already contains the subject.
func (r *CurriculumRepository) HasSubject(ctx context.Context, curriculumID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM curriculum_subjects WHERE curriculum_id = $1 AND subject_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, curriculumID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check curriculum subject: %w", err)
	}
	return true, nil
}

// Create persists a new curriculum.
func (r *CurriculumRepository) Create(ctx context.Context, curriculum *models.Curriculum) error {
	if curriculum.ID == "" {
		curriculum.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if curriculum.CreatedAt.IsZero() {
		curriculum.CreatedAt = now
	}
	curriculum.UpdatedAt = now

	const query = `INSERT INTO curriculums (id, code, name, created_at, updated_at) VALUES (:id, :code, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, curriculum); err != nil {
		return fmt.Errorf("create curriculum: %w", err)
	}
	return nil
}

// Update modifies a curriculum.
func (r *CurriculumRepository) Update(ctx context.Context, curriculum *models.Curriculum) error {
	curriculum.UpdatedAt = time.Now().UTC()
	const query = `UPDATE curriculums SET code = :code, name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, curriculum); err != nil {
		return fmt.Errorf("update curriculum: %w", err)
	}
	return nil
}

// Delete removes a curriculum and its subject slots.
func (r *CurriculumRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete curriculum: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM curriculum_subjects WHERE curriculum_id = $1`, id); err != nil {
		return fmt.Errorf("delete curriculum subjects: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM curriculums WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete curriculum: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete curriculum: %w", err)
	}
	return nil
}

// AddSubject appends a subject slot to a curriculum.
func (r *CurriculumRepository) AddSubject(ctx context.Context, slot *models.CurriculumSubject) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO curriculum_subjects (id, curriculum_id, subject_id, semester_number, created_at)
        VALUES (:id, :curriculum_id, :subject_id, :semester_number, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("add curriculum subject: %w", err)
	}
	return nil
}

// RemoveSubject deletes a subject slot from a curriculum.
func (r *CurriculumRepository) RemoveSubject(ctx context.Context, curriculumID, subjectID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM curriculum_subjects WHERE curriculum_id = $1 AND subject_id = $2`, curriculumID, subjectID)
	if err != nil {
		return fmt.Errorf("remove curriculum subject: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountStudents returns how many students follow the curriculum.
func (r *CurriculumRepository) CountStudents(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE curriculum_id = $1 AND is_deleted = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count curriculum students: %w", err)
	}
	return count, nil
}
