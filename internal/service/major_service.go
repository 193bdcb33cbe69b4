package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type majorRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Major, int, error)
	FindByID(ctx context.Context, id string) (*models.Major, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, major *models.Major) error
	Update(ctx context.Context, major *models.Major) error
	Delete(ctx context.Context, id string) error
	CountCombos(ctx context.Context, id string) (int, error)
	CountStudents(ctx context.Context, id string) (int, error)
}

// MajorRequest is the payload shared by create and update operations.
type MajorRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

// MajorService handles major use-cases.
type MajorService struct {
	repo      majorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMajorService constructs the major service.
func NewMajorService(repo majorRepository, validate *validator.Validate, logger *zap.Logger) *MajorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MajorService{repo: repo, validator: validate, logger: logger}
}

// List returns majors and pagination metadata.
func (s *MajorService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Major, *models.Pagination, error) {
	majors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list majors")
	}
	return majors, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a major by id.
func (s *MajorService) Get(ctx context.Context, id string) (*models.Major, error) {
	major, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "major not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load major")
	}
	return major, nil
}

// Create registers a new major.
func (s *MajorService) Create(ctx context.Context, req MajorRequest) (*models.Major, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid major payload")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate major code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "major code already used")
	}
	major := &models.Major{Code: req.Code, Name: req.Name, Description: req.Description}
	if err := s.repo.Create(ctx, major); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create major")
	}
	return major, nil
}

// Update modifies an existing major.
func (s *MajorService) Update(ctx context.Context, id string, req MajorRequest) (*models.Major, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid major payload")
	}
	major, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "major not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load major")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate major code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "major code already used")
	}
	major.Code = req.Code
	major.Name = req.Name
	major.Description = req.Description
	if err := s.repo.Update(ctx, major); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update major")
	}
	return major, nil
}

// Delete removes a major unless combos or students still reference it.
func (s *MajorService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "major not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load major")
	}
	combos, err := s.repo.CountCombos(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count combos")
	}
	if combos > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "major still has combos")
	}
	students, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if students > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "major still has students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete major")
	}
	return nil
}
