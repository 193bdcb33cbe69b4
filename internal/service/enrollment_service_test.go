package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

const (
	testStudentID       = "6f1c2d3e-4a5b-4c6d-8e7f-901234567001"
	testOtherStudentID  = "6f1c2d3e-4a5b-4c6d-8e7f-901234567002"
	testCourseAID       = "aa1c2d3e-4a5b-4c6d-8e7f-901234567101"
	testCourseBID       = "aa1c2d3e-4a5b-4c6d-8e7f-901234567102"
	testOpenCourseID    = "aa1c2d3e-4a5b-4c6d-8e7f-901234567201"
	testFullCourseID    = "aa1c2d3e-4a5b-4c6d-8e7f-901234567202"
	testOutsideCourseID = "aa1c2d3e-4a5b-4c6d-8e7f-901234567203"
	testMissingCourseID = "aa1c2d3e-4a5b-4c6d-8e7f-901234567204"
	testFutureCourseID  = "aa1c2d3e-4a5b-4c6d-8e7f-901234567205"
	testActorID         = "7f1c2d3e-4a5b-4c6d-8e7f-901234567301"
)

type enrollmentRepoStub struct {
	enrollments map[string]models.EnrollmentDetail
	byStudent   map[string][]models.EnrollmentDetail
	counts      map[string]int
	createErr   error
	created     []models.Enrollment
}

func newEnrollmentRepoStub() *enrollmentRepoStub {
	return &enrollmentRepoStub{
		enrollments: map[string]models.EnrollmentDetail{},
		byStudent:   map[string][]models.EnrollmentDetail{},
		counts:      map[string]int{},
	}
}

func (r *enrollmentRepoStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var all []models.EnrollmentDetail
	for _, e := range r.enrollments {
		all = append(all, e)
	}
	return all, len(all), nil
}

func (r *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	e, ok := r.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (r *enrollmentRepoStub) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return r.byStudent[studentID], nil
}

func (r *enrollmentRepoStub) ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, e := range r.byStudent[studentID] {
		if e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *enrollmentRepoStub) CountByCourse(ctx context.Context, courseID string) (int, error) {
	return r.counts[courseID], nil
}

func (r *enrollmentRepoStub) Create(ctx context.Context, enrollment *models.Enrollment, sessions int) error {
	if r.createErr != nil {
		return r.createErr
	}
	enrollment.ID = uuid.NewString()
	r.created = append(r.created, *enrollment)
	detail := models.EnrollmentDetail{Enrollment: *enrollment}
	r.enrollments[enrollment.ID] = detail
	r.byStudent[enrollment.StudentID] = append(r.byStudent[enrollment.StudentID], detail)
	return nil
}

func (r *enrollmentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.enrollments, id)
	return nil
}

type studentReaderStub struct {
	students map[string]*models.StudentDetail
}

func (r *studentReaderStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type curriculumReaderStub struct {
	slots map[string][]models.CurriculumSubject
}

func (r *curriculumReaderStub) ListSubjects(ctx context.Context, curriculumID string) ([]models.CurriculumSubject, error) {
	return r.slots[curriculumID], nil
}

type courseReaderStub struct {
	courses map[string]*models.CourseDetail
}

func (r *courseReaderStub) FindByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func (r *courseReaderStub) ListBySubjects(ctx context.Context, subjectIDs []string) ([]models.CourseDetail, error) {
	var out []models.CourseDetail
	wanted := map[string]bool{}
	for _, id := range subjectIDs {
		wanted[id] = true
	}
	for _, c := range r.courses {
		if wanted[c.SubjectID] {
			out = append(out, *c)
		}
	}
	return out, nil
}

type auditStub struct {
	logs []models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, *log)
	return nil
}

func strPtr(s string) *string { return &s }

func newOptionsFixture() (*EnrollmentService, *enrollmentRepoStub) {
	repo := newEnrollmentRepoStub()
	studentID := testStudentID
	student := &models.StudentDetail{Student: models.Student{
		ID:              studentID,
		Code:            "SE170001",
		CurriculumID:    strPtr("curr-1"),
		LearnedSemester: 2,
	}}
	students := &studentReaderStub{students: map[string]*models.StudentDetail{studentID: student}}
	curriculums := &curriculumReaderStub{slots: map[string][]models.CurriculumSubject{
		"curr-1": {
			{SubjectID: "subj-1", SemesterNumber: 1, SubjectCode: "S1"},
			{SubjectID: "subj-2", SemesterNumber: 2, SubjectCode: "S2"},
			{SubjectID: "subj-3", SemesterNumber: 2, SubjectCode: "S3"},
		},
	}}
	courses := &courseReaderStub{courses: map[string]*models.CourseDetail{
		testCourseAID: {Course: models.Course{ID: testCourseAID, Code: "A", SubjectID: "subj-2"}},
		testCourseBID: {Course: models.Course{ID: testCourseBID, Code: "B", SubjectID: "subj-3"}},
	}}
	repo.byStudent[studentID] = []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "enr-a", StudentID: studentID, CourseID: testCourseAID, Status: models.EnrollmentInProgress}},
	}
	svc := NewEnrollmentService(repo, students, curriculums, courses, &auditStub{}, nil, nil, zap.NewNop(), EnrollmentConfig{})
	return svc, repo
}

func TestEnrollmentOptionsPartitionsCourses(t *testing.T) {
	svc, _ := newOptionsFixture()

	options, err := svc.Options(context.Background(), testStudentID)
	require.NoError(t, err)
	require.NotNil(t, options)

	// Only the semester the student is progressing through is listed;
	// the semester 1 slot is behind them and must be absent.
	require.Len(t, options.Semesters, 1)
	assert.Equal(t, 2, options.Semesters[0].SemesterNumber)

	subjects := options.Semesters[0].Subjects
	require.Len(t, subjects, 2)
	assert.Equal(t, "subj-2", subjects[0].SubjectID)
	assert.Empty(t, subjects[0].Available)
	require.Len(t, subjects[0].Enrolled, 1)
	assert.Equal(t, "enr-a", subjects[0].Enrolled[0].EnrollmentID)
	assert.Equal(t, models.EnrollmentInProgress, subjects[0].Enrolled[0].EnrollmentStatus)

	assert.Equal(t, "subj-3", subjects[1].SubjectID)
	require.Len(t, subjects[1].Available, 1)
	assert.Equal(t, testCourseBID, subjects[1].Available[0].ID)
	assert.Empty(t, subjects[1].Enrolled)
}

func TestEnrollmentOptionsRequiresCurriculum(t *testing.T) {
	repo := newEnrollmentRepoStub()
	students := &studentReaderStub{students: map[string]*models.StudentDetail{
		testOtherStudentID: {Student: models.Student{ID: testOtherStudentID}},
	}}
	svc := NewEnrollmentService(repo, students, &curriculumReaderStub{}, &courseReaderStub{}, nil, nil, nil, zap.NewNop(), EnrollmentConfig{})

	_, err := svc.Options(context.Background(), testOtherStudentID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCurriculumNotSet.Code, appErr.Code)
}

func TestEnrollmentOptionsStudentNotFound(t *testing.T) {
	svc, _ := newOptionsFixture()

	_, err := svc.Options(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBatchEnrollOutcomes(t *testing.T) {
	repo := newEnrollmentRepoStub()
	studentID := testStudentID
	student := &models.StudentDetail{Student: models.Student{
		ID:              studentID,
		CurriculumID:    strPtr("curr-1"),
		LearnedSemester: 1,
	}}
	students := &studentReaderStub{students: map[string]*models.StudentDetail{studentID: student}}
	curriculums := &curriculumReaderStub{slots: map[string][]models.CurriculumSubject{
		"curr-1": {
			{SubjectID: "subj-1", SemesterNumber: 1},
			{SubjectID: "subj-2", SemesterNumber: 1},
			{SubjectID: "subj-3", SemesterNumber: 2},
		},
	}}
	courses := &courseReaderStub{courses: map[string]*models.CourseDetail{
		testOpenCourseID:    {Course: models.Course{ID: testOpenCourseID, SubjectID: "subj-1", Capacity: 0}},
		testFullCourseID:    {Course: models.Course{ID: testFullCourseID, SubjectID: "subj-2", Capacity: 1}},
		testOutsideCourseID: {Course: models.Course{ID: testOutsideCourseID, SubjectID: "subj-x"}},
		testFutureCourseID:  {Course: models.Course{ID: testFutureCourseID, SubjectID: "subj-3"}},
	}}
	repo.counts[testFullCourseID] = 1
	audit := &auditStub{}
	svc := NewEnrollmentService(repo, students, curriculums, courses, audit, nil, nil, zap.NewNop(), EnrollmentConfig{SessionsPerCourse: 5})

	results, err := svc.BatchEnroll(context.Background(), models.BatchEnrollRequest{
		StudentID: studentID,
		CourseIDs: []string{testOpenCourseID, testOpenCourseID, testMissingCourseID, testOutsideCourseID, testFutureCourseID, testFullCourseID},
	}, testActorID)
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.Equal(t, models.BatchItemCreated, results[0].Status)
	require.NotNil(t, results[0].EnrollmentID)

	assert.Equal(t, models.BatchItemFailed, results[1].Status)
	assert.Equal(t, "course requested more than once", results[1].Reason)

	assert.Equal(t, models.BatchItemFailed, results[2].Status)
	assert.Equal(t, "course not found", results[2].Reason)

	assert.Equal(t, models.BatchItemFailed, results[3].Status)
	assert.Equal(t, "course subject is not in the student's current semester", results[3].Reason)

	// subj-3 exists in the curriculum but sits a semester ahead.
	assert.Equal(t, models.BatchItemFailed, results[4].Status)
	assert.Equal(t, "course subject is not in the student's current semester", results[4].Reason)

	assert.Equal(t, models.BatchItemFailed, results[5].Status)
	assert.Equal(t, "course is full", results[5].Reason)

	require.Len(t, repo.created, 1)
	assert.Equal(t, models.EnrollmentInProgress, repo.created[0].Status)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEnrollBatch, audit.logs[0].Action)
}

func TestBatchEnrollAlreadyEnrolled(t *testing.T) {
	svc, _ := newOptionsFixture()

	results, err := svc.BatchEnroll(context.Background(), models.BatchEnrollRequest{
		StudentID: testStudentID,
		CourseIDs: []string{testCourseAID},
	}, testActorID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.BatchItemFailed, results[0].Status)
	assert.Equal(t, "student already enrolled in course", results[0].Reason)
}

func TestEnrollmentDeleteNotFound(t *testing.T) {
	svc, _ := newOptionsFixture()

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
