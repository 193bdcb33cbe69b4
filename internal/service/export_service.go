package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	"github.com/zus-pop/academix-api/pkg/export"
	"github.com/zus-pop/academix-api/pkg/storage"
)

type exportEnrollmentSource interface {
	ListForExport(ctx context.Context, semesterID string, courseID, studentID *string) ([]models.EnrollmentDetail, error)
}

type exportAttendanceSource interface {
	ListForExport(ctx context.Context, semesterID string, courseID, studentID *string) ([]models.AttendanceDetail, error)
}

type exportAlertSource interface {
	ListForExport(ctx context.Context, studentID *string) ([]models.AlertDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	enrollments exportEnrollmentSource
	attendances exportAttendanceSource
	alerts      exportAlertSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(enrollments exportEnrollmentSource, attendances exportAttendanceSource, alerts exportAlertSource, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		enrollments: enrollments,
		attendances: attendances,
		alerts:      alerts,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(job.Params.SemesterID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	switch job.Type {
	case models.ReportTypeEnrollments:
		return s.buildEnrollmentDataset(ctx, job.Params)
	case models.ReportTypeAttendance:
		return s.buildAttendanceDataset(ctx, job.Params)
	case models.ReportTypeAlerts:
		return s.buildAlertDataset(ctx, job.Params)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildEnrollmentDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	rows, err := s.enrollments.ListForExport(ctx, params.SemesterID, params.CourseID, params.StudentID)
	if err != nil {
		return export.Dataset{}, err
	}
	dataRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		average := ""
		if avg, ok := row.Grades.Average(); ok {
			average = strconv.FormatFloat(avg, 'f', 2, 64)
		}
		dataRows = append(dataRows, []string{
			row.StudentCode,
			row.StudentName,
			row.CourseCode,
			fmt.Sprintf("%s %s", row.SubjectCode, row.SubjectName),
			row.SemesterName,
			string(row.Status),
			average,
		})
	}
	return export.Dataset{
		Title:   "Enrollment Report",
		Headers: []string{"Student Code", "Student Name", "Course", "Subject", "Semester", "Status", "Average"},
		Rows:    dataRows,
	}, nil
}

func (s *ExportService) buildAttendanceDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	rows, err := s.attendances.ListForExport(ctx, params.SemesterID, params.CourseID, params.StudentID)
	if err != nil {
		return export.Dataset{}, err
	}
	dataRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, []string{
			row.StudentCode,
			row.StudentName,
			row.CourseCode,
			row.SemesterName,
			strconv.Itoa(row.Session),
			string(row.Status),
			formatReportTime(row.UpdatedAt),
		})
	}
	return export.Dataset{
		Title:   "Attendance Report",
		Headers: []string{"Student Code", "Student Name", "Course", "Semester", "Session", "Status", "Updated At"},
		Rows:    dataRows,
	}, nil
}

func (s *ExportService) buildAlertDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, error) {
	rows, err := s.alerts.ListForExport(ctx, params.StudentID)
	if err != nil {
		return export.Dataset{}, err
	}
	dataRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, []string{
			row.StudentCode,
			row.StudentName,
			row.CourseCode,
			string(row.RiskLevel),
			string(row.Status),
			row.Title,
			row.Content,
			deref(row.Response),
			deref(row.ActionPlan),
			formatReportTime(row.CreatedAt),
		})
	}
	return export.Dataset{
		Title:   "Risk Alert Report",
		Headers: []string{"Student Code", "Student Name", "Course", "Risk Level", "Status", "Title", "Content", "Response", "Action Plan", "Created At"},
		Rows:    dataRows,
	}, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatReportTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
