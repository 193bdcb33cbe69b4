package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type alertRepository interface {
	List(ctx context.Context, filter models.AlertFilter) ([]models.AlertDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AlertDetail, error)
	Create(ctx context.Context, alert *models.Alert) error
	Respond(ctx context.Context, id, response, actionPlan, respondedBy string, respondedAt time.Time) error
	Resolve(ctx context.Context, id string, resolvedAt time.Time) error
	UpdateRiskLevel(ctx context.Context, id string, level models.RiskLevel) error
}

type alertEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

// AlertService handles academic risk alert use-cases.
type AlertService struct {
	repo        alertRepository
	enrollments alertEnrollmentReader
	audit       auditWriter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAlertService constructs the alert service.
func NewAlertService(repo alertRepository, enrollments alertEnrollmentReader, audit auditWriter, validate *validator.Validate, logger *zap.Logger) *AlertService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{repo: repo, enrollments: enrollments, audit: audit, validator: validate, logger: logger}
}

// List returns alerts and pagination metadata.
func (s *AlertService) List(ctx context.Context, filter models.AlertFilter) ([]models.AlertDetail, *models.Pagination, error) {
	if filter.Status != "" && !models.AlertStatus(filter.Status).Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown alert status")
	}
	if filter.RiskLevel != "" && !models.RiskLevel(filter.RiskLevel).Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown risk level")
	}
	alerts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alerts")
	}
	return alerts, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an alert by id.
func (s *AlertService) Get(ctx context.Context, id string) (*models.AlertDetail, error) {
	alert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load alert")
	}
	return alert, nil
}

// Create opens a new alert on an enrollment.
func (s *AlertService) Create(ctx context.Context, req models.CreateAlertRequest) (*models.Alert, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid alert payload")
	}
	if !req.RiskLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown risk level")
	}
	if _, err := s.enrollments.FindByID(ctx, req.EnrollmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	alert := &models.Alert{
		EnrollmentID: req.EnrollmentID,
		RiskLevel:    req.RiskLevel,
		Status:       models.AlertNotResponded,
		Title:        req.Title,
		Content:      req.Content,
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create alert")
	}
	return alert, nil
}

// Respond records the supervisor answer on an open alert. Both the
// response note and the action plan are required; a resolved alert can
// no longer be answered.
func (s *AlertService) Respond(ctx context.Context, id string, req models.RespondAlertRequest, respondedBy string) (*models.AlertDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "response and action plan are both required")
	}
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == models.AlertResolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "alert is already resolved")
	}
	now := time.Now().UTC()
	if err := s.repo.Respond(ctx, id, req.Response, req.ActionPlan, respondedBy, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to respond to alert")
	}
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &respondedBy,
			Action:     models.AuditActionAlertResponse,
			Resource:   "alerts",
			ResourceID: &id,
			NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, models.AlertResponded)),
		}); err != nil {
			s.logger.Warn("failed to record alert response audit log", zap.Error(err))
		}
	}
	alert.Status = models.AlertResponded
	alert.Response = &req.Response
	alert.ActionPlan = &req.ActionPlan
	alert.RespondedBy = &respondedBy
	alert.RespondedAt = &now
	return alert, nil
}

// Resolve closes an alert. Only a responded alert can be resolved.
func (s *AlertService) Resolve(ctx context.Context, id string) (*models.AlertDetail, error) {
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch alert.Status {
	case models.AlertResolved:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "alert is already resolved")
	case models.AlertNotResponded:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "alert must be responded to before resolving")
	}
	now := time.Now().UTC()
	if err := s.repo.Resolve(ctx, id, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve alert")
	}
	alert.Status = models.AlertResolved
	alert.ResolvedAt = &now
	return alert, nil
}

// UpdateRiskLevel re-grades an open alert.
func (s *AlertService) UpdateRiskLevel(ctx context.Context, id string, req models.UpdateRiskLevelRequest) (*models.AlertDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid risk level payload")
	}
	if !req.RiskLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown risk level")
	}
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == models.AlertResolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "alert is already resolved")
	}
	if err := s.repo.UpdateRiskLevel(ctx, id, req.RiskLevel); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update risk level")
	}
	alert.RiskLevel = req.RiskLevel
	return alert, nil
}
