package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

// weightEpsilon absorbs float rounding when grade weights are summed.
const weightEpsilon = 1e-6

type gradeEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	UpdateGrades(ctx context.Context, id string, grades models.GradeEntries, status models.EnrollmentStatus) error
}

// GradeConfig carries academic tunables for grading.
type GradeConfig struct {
	PassMark float64
}

// GradeService replaces enrollment grade books and derives outcome status.
type GradeService struct {
	repo      gradeEnrollmentRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	config    GradeConfig
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeEnrollmentRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger, config GradeConfig) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PassMark <= 0 {
		config.PassMark = 5.0
	}
	return &GradeService{repo: repo, audit: audit, validator: validate, logger: logger, config: config}
}

// UpdateGrades replaces the full grade array of an enrollment. Weights
// must each lie in [0,1] and sum to at most 1; the enrollment status is
// recomputed from the resulting grade book.
func (s *GradeService) UpdateGrades(ctx context.Context, enrollmentID string, req models.UpdateGradesRequest, actorID string) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, "invalid grade payload")
	}

	grades := models.GradeEntries(req.Grades)
	seen := make(map[string]bool, len(grades))
	for _, entry := range grades {
		if seen[entry.Type] {
			return nil, appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("duplicate grade component %q", entry.Type))
		}
		seen[entry.Type] = true
	}
	if grades.TotalWeight() > 1+weightEpsilon {
		return nil, appErrors.Clone(appErrors.ErrInvalidWeights, "grade weights must sum to at most 1")
	}

	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	status := s.deriveStatus(grades)
	if err := s.repo.UpdateGrades(ctx, enrollmentID, grades, status); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grades")
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionGradeUpdate,
			Resource:   "enrollments",
			ResourceID: &enrollmentID,
			NewValues:  []byte(fmt.Sprintf(`{"entries":%d,"status":%q}`, len(grades), status)),
		}); err != nil {
			s.logger.Warn("failed to record grade update audit log", zap.Error(err))
		}
	}

	enrollment.Grades = grades
	enrollment.Status = status
	return enrollment, nil
}

// deriveStatus computes the enrollment outcome from a grade book. The
// enrollment stays IN PROGRESS until every component is scored and the
// weights cover the full book; only then does it resolve to PASSED or
// NOT PASSED on the weighted total.
func (s *GradeService) deriveStatus(grades models.GradeEntries) models.EnrollmentStatus {
	if !grades.Complete() || grades.TotalWeight() < 1-weightEpsilon {
		return models.EnrollmentInProgress
	}
	if grades.WeightedTotal() >= s.config.PassMark {
		return models.EnrollmentPassed
	}
	return models.EnrollmentNotPassed
}
