package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type alertRepoStub struct {
	alerts     map[string]*models.AlertDetail
	responded  bool
	resolved   bool
	newLevel   models.RiskLevel
	createErr  error
	created    *models.Alert
	respondErr error
}

func newAlertRepoStub(alerts ...*models.AlertDetail) *alertRepoStub {
	stub := &alertRepoStub{alerts: map[string]*models.AlertDetail{}}
	for _, a := range alerts {
		stub.alerts[a.ID] = a
	}
	return stub
}

func (r *alertRepoStub) List(ctx context.Context, filter models.AlertFilter) ([]models.AlertDetail, int, error) {
	var out []models.AlertDetail
	for _, a := range r.alerts {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (r *alertRepoStub) FindByID(ctx context.Context, id string) (*models.AlertDetail, error) {
	a, ok := r.alerts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := *a
	return &detail, nil
}

func (r *alertRepoStub) Create(ctx context.Context, alert *models.Alert) error {
	if r.createErr != nil {
		return r.createErr
	}
	alert.ID = testAlertID
	r.created = alert
	return nil
}

func (r *alertRepoStub) Respond(ctx context.Context, id, response, actionPlan, respondedBy string, respondedAt time.Time) error {
	if r.respondErr != nil {
		return r.respondErr
	}
	r.responded = true
	return nil
}

func (r *alertRepoStub) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	r.resolved = true
	return nil
}

func (r *alertRepoStub) UpdateRiskLevel(ctx context.Context, id string, level models.RiskLevel) error {
	r.newLevel = level
	return nil
}

const (
	testAlertID      = "bb1c2d3e-4a5b-4c6d-8e7f-901234567401"
	testEnrollmentID = "cc1c2d3e-4a5b-4c6d-8e7f-901234567501"
)

func alertWithStatus(status models.AlertStatus) *models.AlertDetail {
	return &models.AlertDetail{Alert: models.Alert{
		ID:           testAlertID,
		EnrollmentID: testEnrollmentID,
		RiskLevel:    models.RiskMedium,
		Status:       status,
	}}
}

func newAlertService(repo *alertRepoStub, enrollments *enrollmentRepoStub) (*AlertService, *auditStub) {
	if enrollments == nil {
		enrollments = newEnrollmentRepoStub()
	}
	audit := &auditStub{}
	return NewAlertService(repo, enrollments, audit, nil, zap.NewNop()), audit
}

func TestAlertCreateOpensNotResponded(t *testing.T) {
	repo := newAlertRepoStub()
	enrollments := newEnrollmentRepoStub()
	enrollments.enrollments[testEnrollmentID] = models.EnrollmentDetail{
		Enrollment: models.Enrollment{ID: testEnrollmentID, StudentID: testStudentID, CourseID: testCourseAID},
	}
	svc, _ := newAlertService(repo, enrollments)

	alert, err := svc.Create(context.Background(), models.CreateAlertRequest{
		EnrollmentID: testEnrollmentID,
		RiskLevel:    models.RiskHigh,
		Title:        "Attendance risk",
		Content:      "missed three sessions in a row",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AlertNotResponded, alert.Status)
	assert.Equal(t, models.RiskHigh, alert.RiskLevel)
	assert.Equal(t, testEnrollmentID, alert.EnrollmentID)
	assert.Equal(t, "Attendance risk", alert.Title)
	require.NotNil(t, repo.created)
}

func TestAlertCreateUnknownEnrollment(t *testing.T) {
	svc, _ := newAlertService(newAlertRepoStub(), nil)

	_, err := svc.Create(context.Background(), models.CreateAlertRequest{
		EnrollmentID: testEnrollmentID,
		RiskLevel:    models.RiskLow,
		Title:        "Attendance risk",
		Content:      "low attendance",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAlertCreateRequiresTitleAndContent(t *testing.T) {
	svc, _ := newAlertService(newAlertRepoStub(), nil)

	_, err := svc.Create(context.Background(), models.CreateAlertRequest{
		EnrollmentID: testEnrollmentID,
		RiskLevel:    models.RiskLow,
		Title:        "Attendance risk",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAlertRespondMovesToResponded(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertNotResponded))
	svc, audit := newAlertService(repo, nil)

	alert, err := svc.Respond(context.Background(), testAlertID, models.RespondAlertRequest{
		Response:   "met with the student",
		ActionPlan: "weekly check-ins for a month",
	}, testActorID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResponded, alert.Status)
	require.NotNil(t, alert.RespondedAt)
	assert.True(t, repo.responded)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAlertResponse, audit.logs[0].Action)
}

func TestAlertRespondRequiresActionPlan(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertNotResponded))
	svc, _ := newAlertService(repo, nil)

	_, err := svc.Respond(context.Background(), testAlertID, models.RespondAlertRequest{
		Response: "met with the student",
	}, testActorID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.responded)
}

func TestAlertRespondBlockedWhenResolved(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertResolved))
	svc, _ := newAlertService(repo, nil)

	_, err := svc.Respond(context.Background(), testAlertID, models.RespondAlertRequest{
		Response:   "too late",
		ActionPlan: "none",
	}, testActorID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAlertResolveRequiresResponse(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertNotResponded))
	svc, _ := newAlertService(repo, nil)

	_, err := svc.Resolve(context.Background(), testAlertID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.resolved)
}

func TestAlertResolveFromResponded(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertResponded))
	svc, _ := newAlertService(repo, nil)

	alert, err := svc.Resolve(context.Background(), testAlertID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, alert.Status)
	require.NotNil(t, alert.ResolvedAt)
	assert.True(t, repo.resolved)
}

func TestAlertResolveIdempotenceRejected(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertResolved))
	svc, _ := newAlertService(repo, nil)

	_, err := svc.Resolve(context.Background(), testAlertID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAlertRiskLevelChangeBlockedWhenResolved(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertResolved))
	svc, _ := newAlertService(repo, nil)

	_, err := svc.UpdateRiskLevel(context.Background(), testAlertID, models.UpdateRiskLevelRequest{RiskLevel: models.RiskHigh})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestAlertRiskLevelChange(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertResponded))
	svc, _ := newAlertService(repo, nil)

	alert, err := svc.UpdateRiskLevel(context.Background(), testAlertID, models.UpdateRiskLevelRequest{RiskLevel: models.RiskHigh})
	require.NoError(t, err)
	assert.Equal(t, models.RiskHigh, alert.RiskLevel)
	assert.Equal(t, models.RiskHigh, repo.newLevel)
}

func TestAlertRiskLevelUnknownValue(t *testing.T) {
	repo := newAlertRepoStub(alertWithStatus(models.AlertNotResponded))
	svc, _ := newAlertService(repo, nil)

	_, err := svc.UpdateRiskLevel(context.Background(), testAlertID, models.UpdateRiskLevelRequest{RiskLevel: "SEVERE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
