package models

import "time"

// Major represents a field of study offered by the institution.
type Major struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Combo represents a specialization bundle within a major, tied to one curriculum.
type Combo struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	MajorID      string    `db:"major_id" json:"major_id"`
	CurriculumID *string   `db:"curriculum_id" json:"curriculum_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Curriculum is an ordered study plan assigning subjects to semester numbers.
type Curriculum struct {
	ID        string              `db:"id" json:"id"`
	Code      string              `db:"code" json:"code"`
	Name      string              `db:"name" json:"name"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
	Subjects  []CurriculumSubject `json:"subjects,omitempty"`
}

// CurriculumSubject ties one subject to a semester slot within a curriculum.
// Subject IDs are unique per curriculum; SemesterNumber is 1-based.
type CurriculumSubject struct {
	ID             string    `db:"id" json:"id"`
	CurriculumID   string    `db:"curriculum_id" json:"curriculum_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	SemesterNumber int       `db:"semester_number" json:"semester_number"`
	SubjectCode    string    `db:"subject_code" json:"subject_code"`
	SubjectName    string    `db:"subject_name" json:"subject_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CatalogFilter captures shared filters for listing catalog entities.
type CatalogFilter struct {
	Search    string
	MajorID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
