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

// AlertRepository manages persistence for academic risk alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository constructs an AlertRepository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const alertDetailColumns = `a.id, a.enrollment_id, a.risk_level, a.status, a.title, a.content, a.response, a.action_plan,
        a.responded_by, a.responded_at, a.resolved_at, a.created_at, a.updated_at,
        e.student_id, st.code AS student_code, st.full_name AS student_name, c.code AS course_code`

const alertDetailJoins = `FROM alerts a
        JOIN enrollments e ON e.id = a.enrollment_id
        JOIN students st ON st.id = e.student_id
        JOIN courses c ON c.id = e.course_id`

// List returns alerts matching the provided filters.
func (r *AlertRepository) List(ctx context.Context, filter models.AlertFilter) ([]models.AlertDetail, int, error) {
	base := alertDetailJoins
	var args []interface{}
	conditions := []string{"1=1"}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.RiskLevel != "" {
		conditions = append(conditions, fmt.Sprintf("a.risk_level = $%d", len(args)+1))
		args = append(args, filter.RiskLevel)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"risk_level": "a.risk_level",
		"status":     "a.status",
		"student":    "st.full_name",
		"created_at": "a.created_at",
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "a.created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", alertDetailColumns, base, column, order, size, offset)
	var alerts []models.AlertDetail
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}
	return alerts, total, nil
}

// FindByID returns an alert detail by id.
func (r *AlertRepository) FindByID(ctx context.Context, id string) (*models.AlertDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.id = $1", alertDetailColumns, alertDetailJoins)
	var alert models.AlertDetail
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

// Create inserts a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	if alert.Status == "" {
		alert.Status = models.AlertNotResponded
	}

	const query = `INSERT INTO alerts (id, enrollment_id, risk_level, status, title, content, response, action_plan, responded_by, responded_at, resolved_at, created_at, updated_at)
        VALUES (:id, :enrollment_id, :risk_level, :status, :title, :content, :response, :action_plan, :responded_by, :responded_at, :resolved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// Respond records the supervisor response and moves the alert to RESPONDED.
func (r *AlertRepository) Respond(ctx context.Context, id, response, actionPlan, respondedBy string, respondedAt time.Time) error {
	const query = `UPDATE alerts SET status = $2, response = $3, action_plan = $4, responded_by = $5, responded_at = $6, updated_at = $6 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.AlertResponded, response, actionPlan, respondedBy, respondedAt)
	if err != nil {
		return fmt.Errorf("respond alert: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Resolve moves the alert to RESOLVED.
func (r *AlertRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	const query = `UPDATE alerts SET status = $2, resolved_at = $3, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.AlertResolved, resolvedAt)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateRiskLevel re-grades an alert.
func (r *AlertRepository) UpdateRiskLevel(ctx context.Context, id string, level models.RiskLevel) error {
	const query = `UPDATE alerts SET risk_level = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, level, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update alert risk level: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListForExport returns every alert matching the optional student scope,
// without pagination.
func (r *AlertRepository) ListForExport(ctx context.Context, studentID *string) ([]models.AlertDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE 1=1", alertDetailColumns, alertDetailJoins)
	var args []interface{}
	if studentID != nil && *studentID != "" {
		args = append(args, *studentID)
		query += fmt.Sprintf(" AND e.student_id = $%d", len(args))
	}
	query += " ORDER BY a.created_at DESC"

	var rows []models.AlertDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list alerts for export: %w", err)
	}
	return rows, nil
}
