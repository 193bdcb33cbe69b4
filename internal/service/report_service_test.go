package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	"github.com/zus-pop/academix-api/internal/repository"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
	"github.com/zus-pop/academix-api/pkg/jobs"
	"github.com/zus-pop/academix-api/pkg/storage"
)

type reportRepoStub struct {
	jobs      map[string]*models.ReportJob
	createErr error
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if r.createErr != nil {
		return r.createErr
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyJob := *job
	return &copyJob, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.ReportJobPatch) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type generatorStub struct {
	result *ExportResult
	errs   []error
	calls  int
}

func (g *generatorStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return g.result, nil
}

const testSemesterID = "cc1c2d3e-4a5b-4c6d-8e7f-901234567501"

func validReportRequest() models.CreateReportRequest {
	return models.CreateReportRequest{
		Type:       models.ReportTypeEnrollments,
		Format:     models.ReportFormatCSV,
		SemesterID: testSemesterID,
	}
}

func TestCreateJobQueuesWork(t *testing.T) {
	repo := newReportRepoStub()
	queue := &queueStub{}
	svc := NewReportService(repo, queue, nil, zap.NewNop(), ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), validReportRequest(), testActorID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	assert.Equal(t, 0, resp.Progress)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.ID, queue.jobs[0].ID)

	stored := repo.jobs[resp.ID]
	require.NotNil(t, stored)
	assert.Equal(t, testActorID, stored.CreatedBy)
	assert.Equal(t, testSemesterID, stored.Params.SemesterID)
}

func TestCreateJobRejectsUnknownType(t *testing.T) {
	svc := NewReportService(newReportRepoStub(), &queueStub{}, nil, zap.NewNop(), ReportServiceConfig{})

	req := validReportRequest()
	req.Type = "transcripts"
	_, err := svc.CreateJob(context.Background(), req, testActorID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobRequiresSemesterForEnrollments(t *testing.T) {
	svc := NewReportService(newReportRepoStub(), &queueStub{}, nil, zap.NewNop(), ReportServiceConfig{})

	req := validReportRequest()
	req.SemesterID = ""
	_, err := svc.CreateJob(context.Background(), req, testActorID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Alert reports cover all semesters and need no scope.
	req.Type = models.ReportTypeAlerts
	_, err = svc.CreateJob(context.Background(), req, testActorID)
	require.NoError(t, err)
}

func TestCreateJobEnqueueFailureMarksFailed(t *testing.T) {
	repo := newReportRepoStub()
	queue := &queueStub{err: errors.New("queue closed")}
	svc := NewReportService(repo, queue, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), validReportRequest(), testActorID)
	require.Error(t, err)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
		assert.Equal(t, 100, job.Progress)
		require.NotNil(t, job.ErrorMessage)
		require.NotNil(t, job.FinishedAt)
	}
}

func TestGetStatusSupervisorOwnership(t *testing.T) {
	repo := newReportRepoStub()
	job := &models.ReportJob{
		ID:        uuid.NewString(),
		Type:      models.ReportTypeEnrollments,
		Status:    models.ReportStatusProcessing,
		Progress:  10,
		CreatedBy: testActorID,
	}
	repo.jobs[job.ID] = job
	svc := NewReportService(repo, &queueStub{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), job.ID, uuid.NewString(), models.RoleSupervisor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// Owners and staff see the job regardless.
	resp, err := svc.GetStatus(context.Background(), job.ID, testActorID, models.RoleSupervisor)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusProcessing, resp.Status)

	resp, err = svc.GetStatus(context.Background(), job.ID, uuid.NewString(), models.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.Progress)
}

func TestGetStatusNotFound(t *testing.T) {
	svc := NewReportService(newReportRepoStub(), &queueStub{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), uuid.NewString(), testActorID, models.RoleAdmin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveDownloadRoundTrip(t *testing.T) {
	repo := newReportRepoStub()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	exporter := NewExportService(nil, nil, nil, store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil, nil)
	svc := NewReportService(repo, &queueStub{}, exporter, zap.NewNop(), ReportServiceConfig{})

	relPath, err := store.Save("enrollments_all_20260830.csv", []byte("Student Code\nSE170001\n"))
	require.NoError(t, err)
	jobID := uuid.NewString()
	token, _, err := signer.Generate(jobID, relPath)
	require.NoError(t, err)
	url := "/api/v1/export/" + token
	repo.jobs[jobID] = &models.ReportJob{
		ID:        jobID,
		Type:      models.ReportTypeEnrollments,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		Status:    models.ReportStatusFinished,
		Progress:  100,
		ResultURL: &url,
	}

	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ReportFormatCSV, download.Format)
	assert.Equal(t, "enrollments_all_20260830.csv", download.Filename)
}

func TestResolveDownloadRejectsUnfinishedJob(t *testing.T) {
	repo := newReportRepoStub()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	exporter := NewExportService(nil, nil, nil, store, signer, ExportConfig{}, zap.NewNop(), nil, nil)
	svc := NewReportService(repo, &queueStub{}, exporter, zap.NewNop(), ReportServiceConfig{})

	jobID := uuid.NewString()
	token, _, err := signer.Generate(jobID, "pending.csv")
	require.NoError(t, err)
	url := "/api/v1/export/" + token
	repo.jobs[jobID] = &models.ReportJob{
		ID:        jobID,
		Status:    models.ReportStatusProcessing,
		ResultURL: &url,
	}

	_, err = svc.ResolveDownload(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestResolveDownloadRejectsGarbageToken(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	exporter := NewExportService(nil, nil, nil, store, signer, ExportConfig{}, zap.NewNop(), nil, nil)
	svc := NewReportService(newReportRepoStub(), &queueStub{}, exporter, zap.NewNop(), ReportServiceConfig{})

	_, err = svc.ResolveDownload(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	repo := newReportRepoStub()
	queue := &queueStub{}
	for i := 0; i < 2; i++ {
		id := uuid.NewString()
		repo.jobs[id] = &models.ReportJob{ID: id, Type: models.ReportTypeAlerts, Status: models.ReportStatusQueued}
	}
	repo.jobs["done"] = &models.ReportJob{ID: "done", Status: models.ReportStatusFinished}
	svc := NewReportService(repo, queue, nil, zap.NewNop(), ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())
	assert.Len(t, queue.jobs, 2)
}

func TestWorkerRetriesThenFails(t *testing.T) {
	repo := newReportRepoStub()
	jobID := uuid.NewString()
	repo.jobs[jobID] = &models.ReportJob{ID: jobID, Type: models.ReportTypeEnrollments, Status: models.ReportStatusQueued}
	gen := &generatorStub{errs: []error{errors.New("database gone")}}
	worker := NewReportWorker(repo, gen, 3, zap.NewNop())

	// Early attempt: job goes back to the queue with the error recorded.
	err := worker.Handle(context.Background(), jobs.Job{ID: jobID, Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, repo.jobs[jobID].Status)
	assert.Equal(t, 0, repo.jobs[jobID].Progress)
	require.NotNil(t, repo.jobs[jobID].ErrorMessage)

	// Final attempt: the job is marked failed for good.
	gen.errs = []error{errors.New("database still gone")}
	err = worker.Handle(context.Background(), jobs.Job{ID: jobID, Attempt: 3})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs[jobID].Status)
	assert.Equal(t, 100, repo.jobs[jobID].Progress)
	require.NotNil(t, repo.jobs[jobID].FinishedAt)
}

func TestWorkerFinishesJob(t *testing.T) {
	repo := newReportRepoStub()
	jobID := uuid.NewString()
	failure := "previous attempt failed"
	repo.jobs[jobID] = &models.ReportJob{
		ID:           jobID,
		Type:         models.ReportTypeEnrollments,
		Status:       models.ReportStatusQueued,
		ErrorMessage: &failure,
	}
	gen := &generatorStub{result: &ExportResult{URL: "/api/v1/export/tok123", Format: models.ReportFormatCSV}}
	worker := NewReportWorker(repo, gen, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: jobID, Attempt: 1})
	require.NoError(t, err)

	job := repo.jobs[jobID]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/tok123", *job.ResultURL)
	require.NotNil(t, job.ErrorMessage)
	assert.Empty(t, *job.ErrorMessage)
	require.NotNil(t, job.FinishedAt)
}
