package models

import (
	"gorm.io/gorm"
)

// Trigger types for automatic enrollment
const (
	TriggerManual       = "manual"
	TriggerNewLead      = "new_lead"
	TriggerNoContact    = "no_contact"
	TriggerInactivity   = "inactivity"
	TriggerStatusChange = "status_change"
)

// Step action types
const (
	ActionEmail        = "email"
	ActionTask         = "task"
	ActionNotification = "notification"
)

// Sequence represents a reusable nurturing automation template
type Sequence struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:false;index" json:"is_active"`

	// manual, new_lead, no_contact, inactivity, status_change
	TriggerType       string            `gorm:"not null;default:'manual'" json:"trigger_type"`
	TriggerConditions TriggerConditions `gorm:"type:jsonb;serializer:json" json:"trigger_conditions"`
	ExitConditions    ExitConditions    `gorm:"type:jsonb;serializer:json" json:"exit_conditions"`

	Steps []SequenceStep `gorm:"type:jsonb;serializer:json" json:"steps"`

	// Statistics (denormalized for performance)
	TotalEnrolled  int `gorm:"default:0" json:"total_enrolled"`
	TotalExited    int `gorm:"default:0" json:"total_exited"`
	TotalCompleted int `gorm:"default:0" json:"total_completed"`
}

// TriggerConditions holds the optional filters for automatic enrollment.
// Day thresholds fall back to defaults when zero; the list filters apply
// to every trigger type when non-empty.
type TriggerConditions struct {
	NoContactDays  int    `json:"no_contact_days,omitempty"`
	InactivityDays int    `json:"inactivity_days,omitempty"`
	TargetStatus   string `json:"target_status,omitempty"`

	LeadSource          []string `json:"lead_source,omitempty"`
	LeadType            []string `json:"lead_type,omitempty"`
	QualificationStatus []string `json:"qualification_status,omitempty"`
	Status              []string `json:"status,omitempty"`
}

// ExitConditions holds the early-termination rules for a sequence
type ExitConditions struct {
	OnReply        bool     `json:"on_reply,omitempty"`
	OnStatusChange []string `json:"on_status_change,omitempty"`
	OnConversion   bool     `json:"on_conversion,omitempty"`
	OnAppointment  bool     `json:"on_appointment,omitempty"`
	MaxDays        int      `json:"max_days,omitempty"`
}

// SequenceStep represents one timed action within a sequence
type SequenceStep struct {
	StepNumber int  `json:"step_number"`
	DelayDays  int  `json:"delay_days"`
	DelayHours int  `json:"delay_hours"`
	IsActive   bool `json:"is_active"`

	// email, task, notification
	ActionType string `json:"action_type"`

	// Email action payload
	EmailSubject string `json:"email_subject,omitempty"`
	EmailBody    string `json:"email_body,omitempty"`

	// Task action payload
	TaskTitle       string `json:"task_title,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
	AssignedTo      *uint  `json:"assigned_to,omitempty"`

	// Notification action payload
	NotificationMessage string `json:"notification_message,omitempty"`

	Condition *StepCondition `json:"condition,omitempty"`

	// When true a failed action leaves the step due, so the next run
	// attempts it again instead of advancing past it.
	RetryOnFailure bool `json:"retry_on_failure,omitempty"`
}

// StepCondition gates execution of a single step
type StepCondition struct {
	SkipIfContacted bool `json:"skip_if_contacted,omitempty"`
}
