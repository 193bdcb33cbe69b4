package models

import "time"

// Course is a concrete offering of a subject within a semester.
type Course struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	SubjectID  string    `db:"subject_id" json:"subject_id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Capacity   int       `db:"capacity" json:"capacity"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail joins a course with its subject and semester names.
type CourseDetail struct {
	Course
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SemesterName string `db:"semester_name" json:"semester_name"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	Search     string
	SubjectID  string
	SemesterID string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
