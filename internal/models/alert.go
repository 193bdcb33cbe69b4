package models

import "time"

// RiskLevel grades how severe an alert is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Valid reports whether the risk level is one of the known values.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// AlertStatus is the response lifecycle of an alert.
type AlertStatus string

const (
	AlertNotResponded AlertStatus = "NOT RESPONDED"
	AlertResponded    AlertStatus = "RESPONDED"
	AlertResolved     AlertStatus = "RESOLVED"
)

// Valid reports whether the status is one of the known values.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertNotResponded, AlertResponded, AlertResolved:
		return true
	}
	return false
}

// Alert flags an enrollment at academic risk. A supervisor answers it
// with a response note and an action plan, after which it can be
// resolved.
type Alert struct {
	ID           string      `db:"id" json:"id"`
	EnrollmentID string      `db:"enrollment_id" json:"enrollment_id"`
	RiskLevel    RiskLevel   `db:"risk_level" json:"risk_level"`
	Status       AlertStatus `db:"status" json:"status"`
	Title        string      `db:"title" json:"title"`
	Content      string      `db:"content" json:"content"`
	Response     *string     `db:"response" json:"response,omitempty"`
	ActionPlan   *string     `db:"action_plan" json:"action_plan,omitempty"`
	RespondedBy  *string     `db:"responded_by" json:"responded_by,omitempty"`
	RespondedAt  *time.Time  `db:"responded_at" json:"responded_at,omitempty"`
	ResolvedAt   *time.Time  `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// AlertDetail joins an alert with the student and course behind the
// flagged enrollment.
type AlertDetail struct {
	Alert
	StudentID   string `db:"student_id" json:"student_id"`
	StudentCode string `db:"student_code" json:"student_code"`
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
}

// AlertFilter captures supported filters for listing alerts.
type AlertFilter struct {
	EnrollmentID string
	StudentID    string
	Status       string
	RiskLevel    string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// CreateAlertRequest opens a new alert on an enrollment.
type CreateAlertRequest struct {
	EnrollmentID string    `json:"enrollment_id" validate:"required,uuid"`
	RiskLevel    RiskLevel `json:"risk_level" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Content      string    `json:"content" validate:"required"`
}

// RespondAlertRequest records the supervisor's answer. Both fields are
// mandatory: a response without a plan is not accepted.
type RespondAlertRequest struct {
	Response   string `json:"response" validate:"required"`
	ActionPlan string `json:"action_plan" validate:"required"`
}

// UpdateRiskLevelRequest re-grades an open alert.
type UpdateRiskLevelRequest struct {
	RiskLevel RiskLevel `json:"risk_level" validate:"required"`
}
