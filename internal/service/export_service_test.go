package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	"github.com/zus-pop/academix-api/pkg/export"
	"github.com/zus-pop/academix-api/pkg/storage"
)

type enrollmentSourceStub struct{}

func (enrollmentSourceStub) ListForExport(ctx context.Context, semesterID string, courseID, studentID *string) ([]models.EnrollmentDetail, error) {
	score := 8.0
	return []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{
				ID:        "enr-1",
				StudentID: "student-1",
				CourseID:  "course-1",
				Status:    models.EnrollmentPassed,
				Grades:    models.GradeEntries{{Type: "final", Weight: 1, Score: &score}},
			},
			StudentCode:  "SE170001",
			StudentName:  "Alice Nguyen",
			CourseCode:   "SE101-SP26",
			SubjectCode:  "SE101",
			SubjectName:  "Intro to SE",
			SemesterName: "Spring 2026",
		},
	}, nil
}

type attendanceSourceStub struct{}

func (attendanceSourceStub) ListForExport(ctx context.Context, semesterID string, courseID, studentID *string) ([]models.AttendanceDetail, error) {
	return []models.AttendanceDetail{
		{
			Attendance: models.Attendance{
				ID:        "att-1",
				Session:   1,
				Status:    models.AttendanceAttended,
				UpdatedAt: time.Now(),
			},
			StudentCode:  "SE170001",
			StudentName:  "Alice Nguyen",
			CourseCode:   "SE101-SP26",
			SemesterName: "Spring 2026",
		},
	}, nil
}

type alertSourceStub struct{}

func (alertSourceStub) ListForExport(ctx context.Context, studentID *string) ([]models.AlertDetail, error) {
	return []models.AlertDetail{
		{
			Alert: models.Alert{
				ID:           "alert-1",
				EnrollmentID: "enr-1",
				RiskLevel:    models.RiskHigh,
				Status:       models.AlertResponded,
				Title:        "Attendance risk",
				Content:      "attendance below threshold",
				CreatedAt:    time.Now(),
			},
			StudentID:   "student-1",
			StudentCode: "SE170001",
			StudentName: "Alice Nguyen",
			CourseCode:  "SE101-SP26",
		},
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(enrollmentSourceStub{}, attendanceSourceStub{}, alertSourceStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateEnrollmentCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeEnrollments,
		Params:    models.ReportJobParams{SemesterID: "sem-1", Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/api/v1/export/")
	require.Equal(t, models.ReportFormatCSV, result.Format)

	content, err := os.ReadFile(store.Path(result.RelativePath))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Student Code,Student Name,Course,Subject,Semester,Status,Average", lines[0])
	require.Contains(t, lines[1], "SE170001")
	require.Contains(t, lines[1], "8.00")
}

func TestExportServiceGenerateAlertPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeAlerts,
		Params:    models.ReportJobParams{Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)
	require.True(t, strings.HasSuffix(result.RelativePath, ".pdf"))

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceBuildFilenameScopes(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	withScope := svc.buildFilename(&models.ReportJob{
		Type:   models.ReportTypeAttendance,
		Params: models.ReportJobParams{SemesterID: "sem 1/spring", Format: models.ReportFormatCSV},
	})
	require.True(t, strings.HasPrefix(withScope, "attendance_sem_1-spring_"))
	require.True(t, strings.HasSuffix(withScope, ".csv"))

	noScope := svc.buildFilename(&models.ReportJob{
		Type:   models.ReportTypeAlerts,
		Params: models.ReportJobParams{Format: models.ReportFormatPDF},
	})
	require.True(t, strings.HasPrefix(noScope, "alerts_all_"))
	require.True(t, strings.HasSuffix(noScope, ".pdf"))
}

func TestExportServiceUnknownType(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	_, err := svc.Generate(context.Background(), &models.ReportJob{
		Type:   "transcripts",
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	})
	require.Error(t, err)
}
