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

type gradeRepoStub struct {
	enrollment    *models.EnrollmentDetail
	findErr       error
	updateErr     error
	updatedGrades models.GradeEntries
	updatedStatus models.EnrollmentStatus
}

func (r *gradeRepoStub) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	detail := *r.enrollment
	return &detail, nil
}

func (r *gradeRepoStub) UpdateGrades(ctx context.Context, id string, grades models.GradeEntries, status models.EnrollmentStatus) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updatedGrades = grades
	r.updatedStatus = status
	return nil
}

func floatPtr(f float64) *float64 { return &f }

func newGradeService(repo *gradeRepoStub) (*GradeService, *auditStub) {
	audit := &auditStub{}
	return NewGradeService(repo, audit, nil, zap.NewNop(), GradeConfig{PassMark: 5.0}), audit
}

func TestUpdateGradesRejectsOverweightBook(t *testing.T) {
	repo := &gradeRepoStub{enrollment: &models.EnrollmentDetail{}}
	svc, _ := newGradeService(repo)

	_, err := svc.UpdateGrades(context.Background(), testCourseAID, models.UpdateGradesRequest{
		Grades: []models.GradeEntry{
			{Type: "midterm", Weight: 0.6},
			{Type: "final", Weight: 0.6},
		},
	}, testActorID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErrors.FromError(err).Code)
}

func TestUpdateGradesRejectsDuplicateComponentTypes(t *testing.T) {
	repo := &gradeRepoStub{enrollment: &models.EnrollmentDetail{}}
	svc, _ := newGradeService(repo)

	_, err := svc.UpdateGrades(context.Background(), testCourseAID, models.UpdateGradesRequest{
		Grades: []models.GradeEntry{
			{Type: "quiz", Weight: 0.3},
			{Type: "quiz", Weight: 0.3},
		},
	}, testActorID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updatedGrades)
}

func TestUpdateGradesToleratesRoundingOnFullWeight(t *testing.T) {
	repo := &gradeRepoStub{enrollment: &models.EnrollmentDetail{
		Enrollment: models.Enrollment{ID: testCourseAID, Status: models.EnrollmentInProgress},
	}}
	svc, _ := newGradeService(repo)

	// Three thirds do not sum to exactly 1 in floating point.
	detail, err := svc.UpdateGrades(context.Background(), testCourseAID, models.UpdateGradesRequest{
		Grades: []models.GradeEntry{
			{Type: "a", Weight: 1.0 / 3},
			{Type: "b", Weight: 1.0 / 3},
			{Type: "c", Weight: 1.0 / 3},
		},
	}, testActorID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, detail.Status)
}

func TestUpdateGradesKeepsInProgressUntilComplete(t *testing.T) {
	repo := &gradeRepoStub{enrollment: &models.EnrollmentDetail{
		Enrollment: models.Enrollment{ID: testCourseAID, Status: models.EnrollmentInProgress},
	}}
	svc, _ := newGradeService(repo)

	detail, err := svc.UpdateGrades(context.Background(), testCourseAID, models.UpdateGradesRequest{
		Grades: []models.GradeEntry{
			{Type: "midterm", Weight: 0.4, Score: floatPtr(9)},
			{Type: "final", Weight: 0.6},
		},
	}, testActorID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, detail.Status)
	assert.Equal(t, models.EnrollmentInProgress, repo.updatedStatus)
}

func TestUpdateGradesKeepsInProgressOnPartialWeight(t *testing.T) {
	repo := &gradeRepoStub{enrollment: &models.EnrollmentDetail{
		Enrollment: models.Enrollment{ID: testCourseAID, Status: models.EnrollmentInProgress},
	}}
	svc, _ := newGradeService(repo)

	// Every entry is scored but half the book is still unweighted.
	detail, err := svc.UpdateGrades(context.Background(), testCourseAID, models.UpdateGradesRequest{
		Grades: []models.GradeEntry{
			{Type: "midterm", Weight: 0.5, Score: floatPtr(9)},
		},
	}, testActorID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentInProgress, detail.Status)
	assert.Equal(t, models.EnrollmentInProgress, repo.updatedStatus)
}

func TestUpdateGradesDerivesPassAndFail(t *testing.T) {
	tests := []struct {
		name     string
		midterm  float64
		final    float64
		expected models.EnrollmentStatus
	}{
		{name: "above pass mark", midterm: 6, final: 7, expected: models.EnrollmentPassed},
		{name: "exactly pass mark", midterm: 5, final: 5, expected: models.EnrollmentPassed},
		{name: "below pass mark", midterm: 4, final: 4.5, expected: models.EnrollmentNotPassed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &gradeRepoStub{enrollment: &models.EnrollmentDetail{
				Enrollment: models.Enrollment{ID: testCourseAID, Status: models.EnrollmentInProgress},
			}}
			svc, audit := newGradeService(repo)

			detail, err := svc.UpdateGrades(context.Background(), testCourseAID, models.UpdateGradesRequest{
				Grades: []models.GradeEntry{
					{Type: "midterm", Weight: 0.4, Score: floatPtr(tc.midterm)},
					{Type: "final", Weight: 0.6, Score: floatPtr(tc.final)},
				},
			}, testActorID)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, detail.Status)
			assert.Equal(t, tc.expected, repo.updatedStatus)
			require.Len(t, audit.logs, 1)
			assert.Equal(t, models.AuditActionGradeUpdate, audit.logs[0].Action)
		})
	}
}

func TestUpdateGradesEnrollmentNotFound(t *testing.T) {
	repo := &gradeRepoStub{findErr: sql.ErrNoRows}
	svc, _ := newGradeService(repo)

	_, err := svc.UpdateGrades(context.Background(), testCourseAID, models.UpdateGradesRequest{
		Grades: []models.GradeEntry{{Type: "final", Weight: 1}},
	}, testActorID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
