package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type curriculumRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.Curriculum, int, error)
	FindByID(ctx context.Context, id string) (*models.Curriculum, error)
	ListSubjects(ctx context.Context, curriculumID string) ([]models.CurriculumSubject, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	HasSubject(ctx context.Context, curriculumID, subjectID string) (bool, error)
	Create(ctx context.Context, curriculum *models.Curriculum) error
	Update(ctx context.Context, curriculum *models.Curriculum) error
	Delete(ctx context.Context, id string) error
	AddSubject(ctx context.Context, slot *models.CurriculumSubject) error
	RemoveSubject(ctx context.Context, curriculumID, subjectID string) error
	CountStudents(ctx context.Context, id string) (int, error)
}

type curriculumSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

// CurriculumRequest is the payload shared by create and update operations.
type CurriculumRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// AddCurriculumSubjectRequest appends a subject slot to a curriculum.
type AddCurriculumSubjectRequest struct {
	SubjectID      string `json:"subject_id" validate:"required,uuid"`
	SemesterNumber int    `json:"semester_number" validate:"required,gte=1"`
}

// CurriculumService handles curriculum use-cases.
type CurriculumService struct {
	repo      curriculumRepository
	subjects  curriculumSubjectReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCurriculumService constructs the curriculum service.
func NewCurriculumService(repo curriculumRepository, subjects curriculumSubjectReader, validate *validator.Validate, logger *zap.Logger) *CurriculumService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// List returns curriculums and pagination metadata.
func (s *CurriculumService) List(ctx context.Context, filter models.CatalogFilter) ([]models.Curriculum, *models.Pagination, error) {
	curriculums, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list curriculums")
	}
	return curriculums, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a curriculum with its subject slots.
func (s *CurriculumService) Get(ctx context.Context, id string) (*models.Curriculum, error) {
	curriculum, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	subjects, err := s.repo.ListSubjects(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum subjects")
	}
	curriculum.Subjects = subjects
	return curriculum, nil
}

// Create registers a new curriculum.
func (s *CurriculumService) Create(ctx context.Context, req CurriculumRequest) (*models.Curriculum, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate curriculum code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "curriculum code already used")
	}
	curriculum := &models.Curriculum{Code: req.Code, Name: req.Name}
	if err := s.repo.Create(ctx, curriculum); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create curriculum")
	}
	return curriculum, nil
}

// Update modifies an existing curriculum.
func (s *CurriculumService) Update(ctx context.Context, id string, req CurriculumRequest) (*models.Curriculum, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	curriculum, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate curriculum code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "curriculum code already used")
	}
	curriculum.Code = req.Code
	curriculum.Name = req.Name
	if err := s.repo.Update(ctx, curriculum); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update curriculum")
	}
	return curriculum, nil
}

// Delete removes a curriculum unless students still follow it.
func (s *CurriculumService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	students, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if students > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "curriculum still has students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete curriculum")
	}
	return nil
}

// AddSubject places a subject into a semester slot of the curriculum.
// A subject can appear at most once per curriculum.
func (s *CurriculumService) AddSubject(ctx context.Context, curriculumID string, req AddCurriculumSubjectRequest) (*models.CurriculumSubject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum subject payload")
	}
	if _, err := s.repo.FindByID(ctx, curriculumID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	exists, err := s.repo.HasSubject(ctx, curriculumID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check curriculum subject")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already in curriculum")
	}
	slot := &models.CurriculumSubject{
		CurriculumID:   curriculumID,
		SubjectID:      req.SubjectID,
		SemesterNumber: req.SemesterNumber,
		SubjectCode:    subject.Code,
		SubjectName:    subject.Name,
	}
	if err := s.repo.AddSubject(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add curriculum subject")
	}
	return slot, nil
}

// RemoveSubject deletes a subject slot from the curriculum.
func (s *CurriculumService) RemoveSubject(ctx context.Context, curriculumID, subjectID string) error {
	if err := s.repo.RemoveSubject(ctx, curriculumID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "curriculum subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove curriculum subject")
	}
	return nil
}
