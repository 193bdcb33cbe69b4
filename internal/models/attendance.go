package models

import "time"

// AttendanceStatus marks a single session of an enrollment.
type AttendanceStatus string

const (
	AttendanceNotYet   AttendanceStatus = "NOT YET"
	AttendanceAttended AttendanceStatus = "ATTENDED"
	AttendanceAbsent   AttendanceStatus = "ABSENT"
)

// Valid reports whether the status is one of the known values.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceNotYet, AttendanceAttended, AttendanceAbsent:
		return true
	}
	return false
}

// Attendance is one session record belonging to an enrollment.
// Session numbers run from 1 to the configured sessions per course.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	Session      int              `db:"session" json:"session"`
	Status       AttendanceStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceDetail augments an attendance record with enrollment context
// for listings and exports.
type AttendanceDetail struct {
	Attendance
	StudentCode  string `db:"student_code" json:"student_code"`
	StudentName  string `db:"student_name" json:"student_name"`
	CourseCode   string `db:"course_code" json:"course_code"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SemesterName string `db:"semester_name" json:"semester_name"`
}

// AttendanceFilter captures supported filters for listing attendances.
type AttendanceFilter struct {
	EnrollmentID string
	Status       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// UpdateAttendanceRequest changes the status of one session record.
type UpdateAttendanceRequest struct {
	Status AttendanceStatus `json:"status" validate:"required"`
}
