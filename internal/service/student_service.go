package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	SetCurriculum(ctx context.Context, id, majorID, comboID, curriculumID string) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

type studentCurriculumReader interface {
	FindByID(ctx context.Context, id string) (*models.Curriculum, error)
}

type studentComboReader interface {
	FindByID(ctx context.Context, id string) (*models.Combo, error)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	Code            string  `json:"code" validate:"required"`
	FullName        string  `json:"full_name" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	Gender          string  `json:"gender" validate:"required"`
	MajorID         *string `json:"major_id" validate:"omitempty,uuid"`
	ComboID         *string `json:"combo_id" validate:"omitempty,uuid"`
	LearnedSemester int     `json:"learned_semester" validate:"gte=0"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	Code            string  `json:"code" validate:"required"`
	FullName        string  `json:"full_name" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	Gender          string  `json:"gender" validate:"required"`
	MajorID         *string `json:"major_id" validate:"omitempty,uuid"`
	ComboID         *string `json:"combo_id" validate:"omitempty,uuid"`
	LearnedSemester int     `json:"learned_semester" validate:"gte=0"`
}

// SetCurriculumRequest assigns the study-plan chain to a student. The
// combo must belong to the major and the curriculum must be the one the
// combo carries.
type SetCurriculumRequest struct {
	MajorID      string `json:"major_id" validate:"required,uuid"`
	ComboID      string `json:"combo_id" validate:"required,uuid"`
	CurriculumID string `json:"curriculum_id" validate:"required,uuid"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	combos      studentComboReader
	curriculums studentCurriculumReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, combos studentComboReader, curriculums studentCurriculumReader, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, combos: combos, curriculums: curriculums, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student code already used")
	}
	student := &models.Student{
		Code:            req.Code,
		FullName:        req.FullName,
		Email:           req.Email,
		Gender:          req.Gender,
		MajorID:         req.MajorID,
		ComboID:         req.ComboID,
		LearnedSemester: req.LearnedSemester,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student code already used")
	}
	student := detail.Student
	student.Code = req.Code
	student.FullName = req.FullName
	student.Email = req.Email
	student.Gender = req.Gender
	student.MajorID = req.MajorID
	student.ComboID = req.ComboID
	student.LearnedSemester = req.LearnedSemester
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// SetCurriculum assigns or replaces the study plan a student follows.
// The major, combo and curriculum are persisted together and must form
// a consistent chain.
func (s *StudentService) SetCurriculum(ctx context.Context, id string, req SetCurriculumRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid curriculum payload")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.curriculums.FindByID(ctx, req.CurriculumID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "curriculum not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	combo, err := s.combos.FindByID(ctx, req.ComboID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "combo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load combo")
	}
	if combo.MajorID != req.MajorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "combo does not belong to the major")
	}
	if combo.CurriculumID == nil || *combo.CurriculumID != req.CurriculumID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "curriculum is not the combo's study plan")
	}
	if err := s.repo.SetCurriculum(ctx, id, req.MajorID, req.ComboID, req.CurriculumID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set curriculum")
	}
	return s.Get(ctx, id)
}

// Delete soft deletes a student. The record stays for enrollment history.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// Restore brings a soft-deleted student back.
func (s *StudentService) Restore(ctx context.Context, id string) (*models.StudentDetail, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore student")
	}
	return s.Get(ctx, id)
}
