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

type attendanceRepoStub struct {
	records map[string]*models.Attendance
	updated models.AttendanceStatus
}

func newAttendanceRepoStub(records ...*models.Attendance) *attendanceRepoStub {
	stub := &attendanceRepoStub{records: map[string]*models.Attendance{}}
	for _, r := range records {
		stub.records[r.ID] = r
	}
	return stub
}

func (r *attendanceRepoStub) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	var out []models.Attendance
	for _, a := range r.records {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (r *attendanceRepoStub) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	a, ok := r.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	record := *a
	return &record, nil
}

func (r *attendanceRepoStub) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Attendance, error) {
	var out []models.Attendance
	for _, a := range r.records {
		if a.EnrollmentID == enrollmentID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *attendanceRepoStub) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	a, ok := r.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	r.updated = status
	return nil
}

func TestAttendanceUpdateStatus(t *testing.T) {
	repo := newAttendanceRepoStub(&models.Attendance{
		ID:           "att-1",
		EnrollmentID: "enr-1",
		Session:      1,
		Status:       models.AttendanceNotYet,
	})
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	attendance, err := svc.UpdateStatus(context.Background(), "att-1", models.UpdateAttendanceRequest{Status: models.AttendanceAttended})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAttended, attendance.Status)
	assert.Equal(t, models.AttendanceAttended, repo.updated)
}

func TestAttendanceUpdateStatusUnknownValue(t *testing.T) {
	repo := newAttendanceRepoStub(&models.Attendance{ID: "att-1"})
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "att-1", models.UpdateAttendanceRequest{Status: "LATE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceUpdateStatusNotFound(t *testing.T) {
	svc := NewAttendanceService(newAttendanceRepoStub(), nil, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "missing", models.UpdateAttendanceRequest{Status: models.AttendanceAbsent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAttendanceListRejectsUnknownStatusFilter(t *testing.T) {
	svc := NewAttendanceService(newAttendanceRepoStub(), nil, zap.NewNop())

	_, _, err := svc.List(context.Background(), models.AttendanceFilter{Status: "LATE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceListByEnrollment(t *testing.T) {
	repo := newAttendanceRepoStub(
		&models.Attendance{ID: "att-1", EnrollmentID: "enr-1", Session: 1},
		&models.Attendance{ID: "att-2", EnrollmentID: "enr-1", Session: 2},
		&models.Attendance{ID: "att-3", EnrollmentID: "enr-2", Session: 1},
	)
	svc := NewAttendanceService(repo, nil, zap.NewNop())

	sessions, err := svc.ListByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
