package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EnrollmentStatus is the academic outcome of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "IN PROGRESS"
	EnrollmentPassed     EnrollmentStatus = "PASSED"
	EnrollmentNotPassed  EnrollmentStatus = "NOT PASSED"
)

// Valid reports whether the status is one of the known values.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentInProgress, EnrollmentPassed, EnrollmentNotPassed:
		return true
	}
	return false
}

// GradeEntry is a single weighted grade component. Score stays nil
// until the component has been marked.
type GradeEntry struct {
	Type   string   `json:"type" validate:"required"`
	Weight float64  `json:"weight" validate:"gte=0,lte=1"`
	Score  *float64 `json:"score,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// GradeEntries is stored as a JSONB column.
type GradeEntries []GradeEntry

func (g GradeEntries) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g)
}

func (g *GradeEntries) Scan(src interface{}) error {
	if src == nil {
		*g = GradeEntries{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("grade entries: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, g)
}

// TotalWeight sums the weights of all entries.
func (g GradeEntries) TotalWeight() float64 {
	var total float64
	for _, e := range g {
		total += e.Weight
	}
	return total
}

// Complete reports whether every entry has a score.
func (g GradeEntries) Complete() bool {
	if len(g) == 0 {
		return false
	}
	for _, e := range g {
		if e.Score == nil {
			return false
		}
	}
	return true
}

// WeightedTotal sums weight*score over the scored entries without
// renormalizing, so missing weight drags the total down.
func (g GradeEntries) WeightedTotal() float64 {
	var total float64
	for _, e := range g {
		if e.Score == nil {
			continue
		}
		total += *e.Score * e.Weight
	}
	return total
}

// Average computes the weight-normalized average of all scored entries.
// The boolean is false when no entry carries any weight.
func (g GradeEntries) Average() (float64, bool) {
	var sum, weight float64
	for _, e := range g {
		if e.Score == nil {
			continue
		}
		sum += *e.Score * e.Weight
		weight += e.Weight
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

// Enrollment links a student to a course together with its grade book.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	CourseID  string           `db:"course_id" json:"course_id"`
	Status    EnrollmentStatus `db:"status" json:"status"`
	Grades    GradeEntries     `db:"grades" json:"grades"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail joins an enrollment with student and course context.
type EnrollmentDetail struct {
	Enrollment
	StudentCode  string `db:"student_code" json:"student_code"`
	StudentName  string `db:"student_name" json:"student_name"`
	CourseCode   string `db:"course_code" json:"course_code"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SemesterName string `db:"semester_name" json:"semester_name"`
}

// EnrollmentFilter captures supported filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UpdateGradesRequest replaces the full grade array of an enrollment.
type UpdateGradesRequest struct {
	Grades []GradeEntry `json:"grades" validate:"required,dive"`
}

// BatchEnrollRequest enrolls one student into several courses at once.
type BatchEnrollRequest struct {
	StudentID string   `json:"student_id" validate:"required,uuid"`
	CourseIDs []string `json:"course_ids" validate:"required,min=1,dive,uuid"`
}

// Batch enrollment per-item outcomes.
const (
	BatchItemCreated = "created"
	BatchItemFailed  = "failed"
)

// BatchEnrollResult reports the outcome for a single requested course.
type BatchEnrollResult struct {
	CourseID     string  `json:"course_id"`
	Status       string  `json:"status"`
	EnrollmentID *string `json:"enrollment_id,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// EnrolledCourse is a course the student already holds an enrollment in.
type EnrolledCourse struct {
	CourseDetail
	EnrollmentID     string           `json:"enrollment_id"`
	EnrollmentStatus EnrollmentStatus `json:"enrollment_status"`
}

// SubjectOptions partitions a subject's current courses into those the
// student can still join and those already joined. The two sets are
// disjoint and together cover every offering of the subject.
type SubjectOptions struct {
	SubjectID   string           `json:"subject_id"`
	SubjectCode string           `json:"subject_code"`
	SubjectName string           `json:"subject_name"`
	Available   []CourseDetail   `json:"available"`
	Enrolled    []EnrolledCourse `json:"enrolled"`
}

// SemesterOptions groups subject options by curriculum semester number.
type SemesterOptions struct {
	SemesterNumber int              `json:"semester_number"`
	Subjects       []SubjectOptions `json:"subjects"`
}

// EnrollmentOptions is the full enrollment picture for a student,
// scoped to the semester they are currently progressing through.
type EnrollmentOptions struct {
	StudentID    string            `json:"student_id"`
	CurriculumID string            `json:"curriculum_id"`
	Semesters    []SemesterOptions `json:"semesters"`
}
