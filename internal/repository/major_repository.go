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

// MajorRepository handles persistence for majors.
type MajorRepository struct {
	db *sqlx.DB
}

// NewMajorRepository creates a new repository instance.
func NewMajorRepository(db *sqlx.DB) *MajorRepository {
	return &MajorRepository{db: db}
}

// List returns majors matching filters with pagination metadata.
func (r *MajorRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Major, int, error) {
	base := "FROM majors WHERE 1=1"
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

	query := fmt.Sprintf("SELECT id, code, name, description, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var majors []models.Major
	if err := r.db.SelectContext(ctx, &majors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list majors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count majors: %w", err)
	}

	return majors, total, nil
}

// FindByID returns a major by id.
func (r *MajorRepository) FindByID(ctx context.Context, id string) (*models.Major, error) {
	const query = `SELECT id, code, name, description, created_at, updated_at FROM majors WHERE id = $1`
	var major models.Major
	if err := r.db.GetContext(ctx, &major, query, id); err != nil {
		return nil, err
	}
	return &major, nil
}

// ExistsByCode checks uniqueness of major code.
func (r *MajorRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM majors WHERE LOWER(code) = LOWER($1)"
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
		return false, fmt.Errorf("check major code: %w", err)
	}
	return true, nil
}

// Create persists a new major.
func (r *MajorRepository) Create(ctx context.Context, major *models.Major) error {
	if major.ID == "" {
		major.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if major.CreatedAt.IsZero() {
		major.CreatedAt = now
	}
	major.UpdatedAt = now

	const query = `INSERT INTO majors (id, code, name, description, created_at, updated_at) VALUES (:id, :code, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, major); err != nil {
		return fmt.Errorf("create major: %w", err)
	}
	return nil
}

// Update modifies a major.
func (r *MajorRepository) Update(ctx context.Context, major *models.Major) error {
	major.UpdatedAt = time.Now().UTC()
	const query = `UPDATE majors SET code = :code, name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, major); err != nil {
		return fmt.Errorf("update major: %w", err)
	}
	return nil
}

// Delete removes a major record.
func (r *MajorRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM majors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete major: %w", err)
	}
	return nil
}

// CountCombos returns how many combos belong to the major.
func (r *MajorRepository) CountCombos(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM combos WHERE major_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count major combos: %w", err)
	}
	return count, nil
}

// CountStudents returns how many students are assigned to the major.
func (r *MajorRepository) CountStudents(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE major_id = $1 AND is_deleted = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count major students: %w", err)
	}
	return count, nil
}
