package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zus-pop/academix-api/internal/models"
	appErrors "github.com/zus-pop/academix-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ExistsByStudentAndCourse(ctx context.Context, studentID, courseID string) (bool, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment, sessions int) error
	Delete(ctx context.Context, id string) error
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type enrollmentCurriculumReader interface {
	ListSubjects(ctx context.Context, curriculumID string) ([]models.CurriculumSubject, error)
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseDetail, error)
	ListBySubjects(ctx context.Context, subjectIDs []string) ([]models.CourseDetail, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EnrollmentConfig carries academic tunables for enrollment flows.
type EnrollmentConfig struct {
	SessionsPerCourse int
}

// EnrollmentService handles enrollment matching, batch creation and removal.
type EnrollmentService struct {
	repo        enrollmentRepository
	students    enrollmentStudentReader
	curriculums enrollmentCurriculumReader
	courses     enrollmentCourseReader
	audit       auditWriter
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	config      EnrollmentConfig
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentReader, curriculums enrollmentCurriculumReader, courses enrollmentCourseReader, audit auditWriter, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config EnrollmentConfig) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SessionsPerCourse <= 0 {
		config.SessionsPerCourse = 10
	}
	return &EnrollmentService{
		repo:        repo,
		students:    students,
		curriculums: curriculums,
		courses:     courses,
		audit:       audit,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// List returns enrollments and pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns an enrollment detail by id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Options computes the enrollment picture for a student: the curriculum
// subjects of their current semester, each with its course offerings
// split into available and already-enrolled sets. The two sets are
// disjoint and together cover every offering of the subject.
func (s *EnrollmentService) Options(ctx context.Context, studentID string) (*models.EnrollmentOptions, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.CurriculumID == nil || *student.CurriculumID == "" {
		return nil, appErrors.Clone(appErrors.ErrCurriculumNotSet, "student has no curriculum assigned")
	}

	cacheKey := enrollmentOptionsCacheKey(studentID)
	if s.cache.Enabled() {
		var cached models.EnrollmentOptions
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	slots, err := s.curriculums.ListSubjects(ctx, *student.CurriculumID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum subjects")
	}

	currentSemester := student.LearnedSemester
	if currentSemester < 1 {
		currentSemester = 1
	}

	bySemester := map[int][]models.CurriculumSubject{}
	var subjectIDs []string
	for _, slot := range slots {
		if slot.SemesterNumber != currentSemester {
			continue
		}
		bySemester[slot.SemesterNumber] = append(bySemester[slot.SemesterNumber], slot)
		subjectIDs = append(subjectIDs, slot.SubjectID)
	}

	courses, err := s.courses.ListBySubjects(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	coursesBySubject := map[string][]models.CourseDetail{}
	for _, course := range courses {
		coursesBySubject[course.SubjectID] = append(coursesBySubject[course.SubjectID], course)
	}

	enrollments, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	enrollmentByCourse := map[string]models.EnrollmentDetail{}
	for _, enrollment := range enrollments {
		enrollmentByCourse[enrollment.CourseID] = enrollment
	}

	semesterNumbers := make([]int, 0, len(bySemester))
	for number := range bySemester {
		semesterNumbers = append(semesterNumbers, number)
	}
	sort.Ints(semesterNumbers)

	options := &models.EnrollmentOptions{
		StudentID:    studentID,
		CurriculumID: *student.CurriculumID,
		Semesters:    make([]models.SemesterOptions, 0, len(semesterNumbers)),
	}
	for _, number := range semesterNumbers {
		semester := models.SemesterOptions{SemesterNumber: number}
		for _, slot := range bySemester[number] {
			subject := models.SubjectOptions{
				SubjectID:   slot.SubjectID,
				SubjectCode: slot.SubjectCode,
				SubjectName: slot.SubjectName,
				Available:   []models.CourseDetail{},
				Enrolled:    []models.EnrolledCourse{},
			}
			for _, course := range coursesBySubject[slot.SubjectID] {
				if enrollment, ok := enrollmentByCourse[course.ID]; ok {
					subject.Enrolled = append(subject.Enrolled, models.EnrolledCourse{
						CourseDetail:     course,
						EnrollmentID:     enrollment.ID,
						EnrollmentStatus: enrollment.Status,
					})
					continue
				}
				subject.Available = append(subject.Available, course)
			}
			semester.Subjects = append(semester.Subjects, subject)
		}
		options.Semesters = append(options.Semesters, semester)
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, options, 0); err != nil {
			s.logger.Warn("failed to cache enrollment options", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return options, nil
}

// BatchEnroll enrolls a student into several courses at once. Each
// requested course gets its own outcome; one failing course never rolls
// back the others.
func (s *EnrollmentService) BatchEnroll(ctx context.Context, req models.BatchEnrollRequest, actorID string) ([]models.BatchEnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch enroll payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if student.CurriculumID == nil || *student.CurriculumID == "" {
		return nil, appErrors.Clone(appErrors.ErrCurriculumNotSet, "student has no curriculum assigned")
	}

	slots, err := s.curriculums.ListSubjects(ctx, *student.CurriculumID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum subjects")
	}
	currentSemester := student.LearnedSemester
	if currentSemester < 1 {
		currentSemester = 1
	}
	enrollableSubjects := map[string]bool{}
	for _, slot := range slots {
		if slot.SemesterNumber == currentSemester {
			enrollableSubjects[slot.SubjectID] = true
		}
	}

	results := make([]models.BatchEnrollResult, 0, len(req.CourseIDs))
	seen := map[string]bool{}
	created := 0
	for _, courseID := range req.CourseIDs {
		if seen[courseID] {
			results = append(results, failedEnrollResult(courseID, "course requested more than once"))
			continue
		}
		seen[courseID] = true
		results = append(results, s.enrollOne(ctx, student, enrollableSubjects, courseID))
		if results[len(results)-1].Status == models.BatchItemCreated {
			created++
		}
	}

	if created > 0 {
		if s.cache.Enabled() {
			if err := s.cache.Invalidate(ctx, enrollmentOptionsCacheKey(req.StudentID)); err != nil {
				s.logger.Warn("failed to invalidate enrollment options cache", zap.Error(err))
			}
		}
		if s.audit != nil {
			if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
				UserID:     &actorID,
				Action:     models.AuditActionEnrollBatch,
				Resource:   "enrollments",
				ResourceID: &req.StudentID,
				NewValues:  []byte(fmt.Sprintf(`{"requested":%d,"created":%d}`, len(req.CourseIDs), created)),
			}); err != nil {
				s.logger.Warn("failed to record batch enroll audit log", zap.Error(err))
			}
		}
	}
	return results, nil
}

func (s *EnrollmentService) enrollOne(ctx context.Context, student *models.StudentDetail, enrollableSubjects map[string]bool, courseID string) models.BatchEnrollResult {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return failedEnrollResult(courseID, "course not found")
		}
		s.logger.Error("failed to load course for batch enroll", zap.String("course_id", courseID), zap.Error(err))
		return failedEnrollResult(courseID, "failed to load course")
	}
	if !enrollableSubjects[course.SubjectID] {
		return failedEnrollResult(courseID, "course subject is not in the student's current semester")
	}

	exists, err := s.repo.ExistsByStudentAndCourse(ctx, student.ID, courseID)
	if err != nil {
		s.logger.Error("failed to check existing enrollment", zap.String("course_id", courseID), zap.Error(err))
		return failedEnrollResult(courseID, "failed to check existing enrollment")
	}
	if exists {
		return failedEnrollResult(courseID, "student already enrolled in course")
	}

	if course.Capacity > 0 {
		count, err := s.repo.CountByCourse(ctx, courseID)
		if err != nil {
			s.logger.Error("failed to count course enrollments", zap.String("course_id", courseID), zap.Error(err))
			return failedEnrollResult(courseID, "failed to check course capacity")
		}
		if count >= course.Capacity {
			return failedEnrollResult(courseID, "course is full")
		}
	}

	enrollment := &models.Enrollment{
		StudentID: student.ID,
		CourseID:  courseID,
		Status:    models.EnrollmentInProgress,
		Grades:    models.GradeEntries{},
	}
	if err := s.repo.Create(ctx, enrollment, s.config.SessionsPerCourse); err != nil {
		s.logger.Error("failed to create enrollment", zap.String("course_id", courseID), zap.Error(err))
		return failedEnrollResult(courseID, "failed to create enrollment")
	}
	return models.BatchEnrollResult{
		CourseID:     courseID,
		Status:       models.BatchItemCreated,
		EnrollmentID: &enrollment.ID,
	}
}

// Delete removes an enrollment and its attendance history.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, enrollmentOptionsCacheKey(enrollment.StudentID)); err != nil {
			s.logger.Warn("failed to invalidate enrollment options cache", zap.Error(err))
		}
	}
	return nil
}

func enrollmentOptionsCacheKey(studentID string) string {
	return fmt.Sprintf("enrollment_options:%s", studentID)
}

func failedEnrollResult(courseID, reason string) models.BatchEnrollResult {
	return models.BatchEnrollResult{CourseID: courseID, Status: models.BatchItemFailed, Reason: reason}
}
