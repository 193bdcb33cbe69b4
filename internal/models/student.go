package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID              string    `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	FullName        string    `db:"full_name" json:"full_name"`
	Email           string    `db:"email" json:"email"`
	Gender          string    `db:"gender" json:"gender"`
	MajorID         *string   `db:"major_id" json:"major_id,omitempty"`
	ComboID         *string   `db:"combo_id" json:"combo_id,omitempty"`
	CurriculumID    *string   `db:"curriculum_id" json:"curriculum_id,omitempty"`
	LearnedSemester int       `db:"learned_semester" json:"learned_semester"`
	IsDeleted       bool      `db:"is_deleted" json:"is_deleted"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches a Student with resolved catalog names.
type StudentDetail struct {
	Student
	MajorName      *string `db:"major_name" json:"major_name,omitempty"`
	ComboName      *string `db:"combo_name" json:"combo_name,omitempty"`
	CurriculumName *string `db:"curriculum_name" json:"curriculum_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	MajorID      string
	CurriculumID string
	Deleted      *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
