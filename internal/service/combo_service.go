package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type comboRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Combo, int, error)
	FindByID(ctx context.Context, id string) (*models.Combo, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, combo *models.Combo) error
	Update(ctx context.Context, combo *models.Combo) error
	Delete(ctx context.Context, id string) error
	CountStudents(ctx context.Context, id string) (int, error)
}

type comboMajorReader interface {
	FindByID(ctx context.Context, id string) (*models.Major, error)
}

type comboCurriculumReader interface {
	FindByID(ctx context.Context, id string) (*models.Curriculum, error)
}

// ComboRequest is the payload shared by create and update operations.
type ComboRequest struct {
	Code         string  `json:"code" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	MajorID      string  `json:"major_id" validate:"required,uuid"`
	CurriculumID *string `json:"curriculum_id" validate:"omitempty,uuid"`
}

// ComboService handles specialization combo use-cases.
type ComboService struct {
	repo        comboRepository
	majors      comboMajorReader
	curriculums comboCurriculumReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewComboService constructs the combo service.
func NewComboService(repo comboRepository, majors comboMajorReader, curriculums comboCurriculumReader, validate *validator.Validate, logger *zap.Logger) *ComboService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComboService{repo: repo, majors: majors, curriculums: curriculums, validator: validate, logger: logger}
}

// List returns combos and pagination metadata.
func (s *ComboService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Combo, *models.Pagination, error) {
	combos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list combos")
	}
	return combos, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a combo by id.
func (s *ComboService) Get(ctx context.Context, id string) (*models.Combo, error) {
	combo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "combo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load combo")
	}
	return combo, nil
}

// Create registers a new combo within a major.
func (s *ComboService) Create(ctx context.Context, req ComboRequest) (*models.Combo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid combo payload")
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate combo code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "combo code already used")
	}
	combo := &models.Combo{Code: req.Code, Name: req.Name, MajorID: req.MajorID, CurriculumID: req.CurriculumID}
	if err := s.repo.Create(ctx, combo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create combo")
	}
	return combo, nil
}

// Update modifies an existing combo.
func (s *ComboService) Update(ctx context.Context, id string, req ComboRequest) (*models.Combo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid combo payload")
	}
	combo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "combo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load combo")
	}
	if err := s.checkReferences(ctx, req); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate combo code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "combo code already used")
	}
	combo.Code = req.Code
	combo.Name = req.Name
	combo.MajorID = req.MajorID
	combo.CurriculumID = req.CurriculumID
	if err := s.repo.Update(ctx, combo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update combo")
	}
	return combo, nil
}

// Delete removes a combo unless students still reference it.
func (s *ComboService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "combo not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load combo")
	}
	students, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if students > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "combo still has students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete combo")
	}
	return nil
}

func (s *ComboService) checkReferences(ctx context.Context, req ComboRequest) error {
	if _, err := s.majors.FindByID(ctx, req.MajorID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "major not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load major")
	}
	if req.CurriculumID != nil {
		if _, err := s.curriculums.FindByID(ctx, *req.CurriculumID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
		}
	}
	return nil
}
