package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type studentRepoStub struct {
	students      map[string]*models.StudentDetail
	codes         map[string]string
	curriculumSet string
	softDeleted   []string
}

func newStudentRepoStub(students ...*models.StudentDetail) *studentRepoStub {
	stub := &studentRepoStub{
		students: map[string]*models.StudentDetail{},
		codes:    map[string]string{},
	}
	for _, s := range students {
		stub.students[s.ID] = s
		stub.codes[s.Code] = s.ID
	}
	return stub
}

func (r *studentRepoStub) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, s := range r.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *studentRepoStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := *s
	return &detail, nil
}

func (r *studentRepoStub) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	id, ok := r.codes[code]
	if !ok {
		return false, nil
	}
	return id != excludeID, nil
}

func (r *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	student.ID = testStudentID
	r.students[student.ID] = &models.StudentDetail{Student: *student}
	r.codes[student.Code] = student.ID
	return nil
}

func (r *studentRepoStub) Update(ctx context.Context, student *models.Student) error {
	detail, ok := r.students[student.ID]
	if !ok {
		return sql.ErrNoRows
	}
	detail.Student = *student
	return nil
}

func (r *studentRepoStub) SetCurriculum(ctx context.Context, id, majorID, comboID, curriculumID string) error {
	detail, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.curriculumSet = curriculumID
	detail.MajorID = &majorID
	detail.ComboID = &comboID
	detail.CurriculumID = &curriculumID
	return nil
}

func (r *studentRepoStub) SoftDelete(ctx context.Context, id string) error {
	detail, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	detail.IsDeleted = true
	r.softDeleted = append(r.softDeleted, id)
	return nil
}

func (r *studentRepoStub) Restore(ctx context.Context, id string) error {
	detail, ok := r.students[id]
	if !ok {
		return sql.ErrNoRows
	}
	detail.IsDeleted = false
	return nil
}

type curriculumByIDStub struct {
	curriculums map[string]*models.Curriculum
}

func (r *curriculumByIDStub) FindByID(ctx context.Context, id string) (*models.Curriculum, error) {
	c, ok := r.curriculums[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type comboByIDStub struct {
	combos map[string]*models.Combo
}

func (r *comboByIDStub) FindByID(ctx context.Context, id string) (*models.Combo, error) {
	c, ok := r.combos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

const (
	testCurriculumID = "dd1c2d3e-4a5b-4c6d-8e7f-901234567701"
	testMajorID      = "dd1c2d3e-4a5b-4c6d-8e7f-901234567702"
	testComboID      = "dd1c2d3e-4a5b-4c6d-8e7f-901234567703"
)

func studyPlanStubs() (*comboByIDStub, *curriculumByIDStub) {
	curriculumID := testCurriculumID
	combos := &comboByIDStub{combos: map[string]*models.Combo{
		testComboID: {ID: testComboID, MajorID: testMajorID, CurriculumID: &curriculumID},
	}}
	curriculums := &curriculumByIDStub{curriculums: map[string]*models.Curriculum{
		testCurriculumID: {ID: testCurriculumID, Name: "SE 2026"},
	}}
	return combos, curriculums
}

func validStudentRequest() CreateStudentRequest {
	return CreateStudentRequest{
		Code:     "SE170001",
		FullName: "Alice Nguyen",
		Email:    "alice@academix.edu",
		Gender:   "FEMALE",
	}
}

func TestStudentCreate(t *testing.T) {
	repo := newStudentRepoStub()
	svc := NewStudentService(repo, &comboByIDStub{}, &curriculumByIDStub{}, nil, zap.NewNop())

	student, err := svc.Create(context.Background(), validStudentRequest())
	require.NoError(t, err)
	assert.Equal(t, testStudentID, student.ID)
	assert.Equal(t, "SE170001", student.Code)
}

func TestStudentCreateDuplicateCode(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testOtherStudentID, Code: "SE170001"}}
	svc := NewStudentService(newStudentRepoStub(existing), &comboByIDStub{}, &curriculumByIDStub{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), validStudentRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentUpdateKeepsOwnCode(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testStudentID, Code: "SE170001"}}
	svc := NewStudentService(newStudentRepoStub(existing), &comboByIDStub{}, &curriculumByIDStub{}, nil, zap.NewNop())

	student, err := svc.Update(context.Background(), testStudentID, UpdateStudentRequest{
		Code:     "SE170001",
		FullName: "Alice N. Nguyen",
		Email:    "alice@academix.edu",
		Gender:   "FEMALE",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice N. Nguyen", student.FullName)
}

func TestStudentSetCurriculum(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testStudentID, Code: "SE170001"}}
	repo := newStudentRepoStub(existing)
	combos, curriculums := studyPlanStubs()
	svc := NewStudentService(repo, combos, curriculums, nil, zap.NewNop())

	detail, err := svc.SetCurriculum(context.Background(), testStudentID, SetCurriculumRequest{
		MajorID:      testMajorID,
		ComboID:      testComboID,
		CurriculumID: testCurriculumID,
	})
	require.NoError(t, err)
	assert.Equal(t, testCurriculumID, repo.curriculumSet)
	require.NotNil(t, detail.MajorID)
	assert.Equal(t, testMajorID, *detail.MajorID)
	require.NotNil(t, detail.ComboID)
	assert.Equal(t, testComboID, *detail.ComboID)
	require.NotNil(t, detail.CurriculumID)
	assert.Equal(t, testCurriculumID, *detail.CurriculumID)
}

func TestStudentSetCurriculumComboOutsideMajor(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testStudentID, Code: "SE170001"}}
	combos, curriculums := studyPlanStubs()
	svc := NewStudentService(newStudentRepoStub(existing), combos, curriculums, nil, zap.NewNop())

	_, err := svc.SetCurriculum(context.Background(), testStudentID, SetCurriculumRequest{
		MajorID:      testCurriculumID, // some other major
		ComboID:      testComboID,
		CurriculumID: testCurriculumID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentSetCurriculumNotCombosPlan(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testStudentID, Code: "SE170001"}}
	combos, curriculums := studyPlanStubs()
	curriculums.curriculums[testMajorID] = &models.Curriculum{ID: testMajorID, Name: "AI 2026"}
	svc := NewStudentService(newStudentRepoStub(existing), combos, curriculums, nil, zap.NewNop())

	_, err := svc.SetCurriculum(context.Background(), testStudentID, SetCurriculumRequest{
		MajorID:      testMajorID,
		ComboID:      testComboID,
		CurriculumID: testMajorID, // a curriculum the combo does not carry
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentSetCurriculumUnknownCurriculum(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testStudentID, Code: "SE170001"}}
	svc := NewStudentService(newStudentRepoStub(existing), &comboByIDStub{}, &curriculumByIDStub{}, nil, zap.NewNop())

	_, err := svc.SetCurriculum(context.Background(), testStudentID, SetCurriculumRequest{
		MajorID:      testMajorID,
		ComboID:      testComboID,
		CurriculumID: testCurriculumID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentDeleteIsSoft(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testStudentID, Code: "SE170001"}}
	repo := newStudentRepoStub(existing)
	svc := NewStudentService(repo, &comboByIDStub{}, &curriculumByIDStub{}, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), testStudentID))
	assert.Equal(t, []string{testStudentID}, repo.softDeleted)
}

func TestStudentRestore(t *testing.T) {
	existing := &models.StudentDetail{Student: models.Student{ID: testStudentID, Code: "SE170001", IsDeleted: true}}
	repo := newStudentRepoStub(existing)
	svc := NewStudentService(repo, &comboByIDStub{}, &curriculumByIDStub{}, nil, zap.NewNop())

	detail, err := svc.Restore(context.Background(), testStudentID)
	require.NoError(t, err)
	assert.False(t, detail.IsDeleted)
}

func TestStudentRestoreUnknown(t *testing.T) {
	svc := NewStudentService(newStudentRepoStub(), &comboByIDStub{}, &curriculumByIDStub{}, nil, zap.NewNop())

	_, err := svc.Restore(context.Background(), testStudentID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
