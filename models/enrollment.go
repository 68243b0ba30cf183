package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment statuses (also used for Lead.NurturingStatus)
const (
	NurturingActive    = "active"
	NurturingExited    = "exited"
	NurturingCompleted = "completed"
)

// Step log results
const (
	StepResultSent    = "sent"
	StepResultFailed  = "failed"
	StepResultSkipped = "skipped"
)

// Enrollment represents one lead's run through one sequence
type Enrollment struct {
	gorm.Model
	LeadID     uint  `gorm:"not null;index" json:"lead_id"`
	ContactID  *uint `gorm:"index" json:"contact_id"`
	SequenceID uint  `gorm:"not null;index" json:"sequence_id"`

	// Denormalized for dashboards
	SequenceName string `json:"sequence_name"`

	// Zero-based index into the sequence's steps, only ever increases
	CurrentStep int `gorm:"default:0" json:"current_step"`

	// active, exited, completed — terminal once exited/completed
	Status     string `gorm:"default:'active';index" json:"status"`
	ExitReason string `json:"exit_reason,omitempty"`

	EnrolledAt   time.Time  `json:"enrolled_at"`
	EnrolledBy   string     `json:"enrolled_by"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	NextActionAt *time.Time `json:"next_action_date,omitempty"`

	CompletedSteps []CompletedStep   `gorm:"type:jsonb;serializer:json" json:"completed_steps"`
	Metrics        EnrollmentMetrics `gorm:"type:jsonb;serializer:json" json:"metrics"`
}

// CompletedStep is one entry in the enrollment's append-only step log
type CompletedStep struct {
	StepNumber  int       `json:"step_number"`
	CompletedAt time.Time `json:"completed_at"`
	ActionType  string    `json:"action_type"`
	// sent, failed, skipped
	Result  string `json:"result"`
	Details string `json:"details,omitempty"`
}

// EnrollmentMetrics tracks per-enrollment engagement counters
type EnrollmentMetrics struct {
	EmailsSent    int `json:"emails_sent"`
	EmailsOpened  int `json:"emails_opened"`
	EmailsClicked int `json:"emails_clicked"`
	TasksCreated  int `json:"tasks_created"`
}

// NurtureRun persists the outcome of one engine invocation
type NurtureRun struct {
	gorm.Model
	Processed          int       `gorm:"default:0" json:"processed"`
	EmailsSent         int       `gorm:"default:0" json:"emails_sent"`
	TasksCreated       int       `gorm:"default:0" json:"tasks_created"`
	EnrollmentsCreated int       `gorm:"default:0" json:"enrollments_created"`
	Exits              int       `gorm:"default:0" json:"exits"`
	Success            bool      `gorm:"default:true" json:"success"`
	Errors             string    `gorm:"type:text" json:"errors,omitempty"`
	RanAt              time.Time `json:"ran_at"`
}
