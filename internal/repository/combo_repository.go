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

// ComboRepository handles persistence for specialization combos.
type ComboRepository struct {
	db *sqlx.DB
}

// NewComboRepository creates a new repository instance.
func NewComboRepository(db *sqlx.DB) *ComboRepository {
	return &ComboRepository{db: db}
}

// List returns combos matching filters with pagination metadata.
func (r *ComboRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.Combo, int, error) {
	base := "FROM combos WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.MajorID != "" {
		conditions = append(conditions, fmt.Sprintf("major_id = $%d", len(args)+1))
		args = append(args, filter.MajorID)
	}
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

	query := fmt.Sprintf("SELECT id, code, name, major_id, curriculum_id, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var combos []models.Combo
	if err := r.db.SelectContext(ctx, &combos, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list combos: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count combos: %w", err)
	}

	return combos, total, nil
}

// FindByID returns a combo by id.
func (r *ComboRepository) FindByID(ctx context.Context, id string) (*models.Combo, error) {
	const query = `SELECT id, code, name, major_id, curriculum_id, created_at, updated_at FROM combos WHERE id = $1`
	var combo models.Combo
	if err := r.db.GetContext(ctx, &combo, query, id); err != nil {
		return nil, err
	}
	return &combo, nil
}

// ExistsByCode checks uniqueness of combo code.
func (r *ComboRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM combos WHERE LOWER(code) = LOWER($1)"
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
		return false, fmt.Errorf("check combo code: %w", err)
	}
	return true, nil
}

// Create persists a new combo.
func (r *ComboRepository) Create(ctx context.Context, combo *models.Combo) error {
	if combo.ID == "" {
		combo.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if combo.CreatedAt.IsZero() {
		combo.CreatedAt = now
	}
	combo.UpdatedAt = now

	const query = `INSERT INTO combos (id, code, name, major_id, curriculum_id, created_at, updated_at) VALUES (:id, :code, :name, :major_id, :curriculum_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, combo); err != nil {
		return fmt.Errorf("create combo: %w", err)
	}
	return nil
}

// Update modifies a combo.
func (r *ComboRepository) Update(ctx context.Context, combo *models.Combo) error {
	combo.UpdatedAt = time.Now().UTC()
	const query = `UPDATE combos SET code = :code, name = :name, major_id = :major_id, curriculum_id = :curriculum_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, combo); err != nil {
		return fmt.Errorf("update combo: %w", err)
	}
	return nil
}

// Delete removes a combo record.
func (r *ComboRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM combos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete combo: %w", err)
	}
	return nil
}

// CountStudents returns how many students are assigned to the combo.
func (r *ComboRepository) CountStudents(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE combo_id = $1 AND is_deleted = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count combo students: %w", err)
	}
	return count, nil
}
