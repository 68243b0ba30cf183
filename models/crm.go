package models

import (
	"time"

	"gorm.io/gorm"
)

// Contact represents a person linked to one or more opportunities
type Contact struct {
	gorm.Model
	Name  string `json:"name"`
	Email string `gorm:"index" json:"email"`
	Phone string `json:"phone"`

	// Lead ids this contact converted into opportunities
	LinkedOpportunityIDs []uint `gorm:"type:jsonb;serializer:json" json:"linked_opportunity_ids,omitempty"`
}

// Appointment represents a scheduled visit or meeting for a lead
type Appointment struct {
	gorm.Model
	LeadID        uint      `gorm:"not null;index" json:"lead_id"`
	Title         string    `json:"title"`
	AppointmentAt time.Time `gorm:"index" json:"appointment_date"`
	Status        string    `gorm:"default:'scheduled'" json:"status"`
}

// Task represents a follow-up item created for an agent
type Task struct {
	gorm.Model
	LeadID      uint   `gorm:"index" json:"lead_id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	AssignedTo  *uint  `gorm:"index" json:"assigned_to"`

	DueAt    *time.Time `json:"due_date,omitempty"`
	Priority string     `gorm:"default:'medium'" json:"priority"`
	Status   string     `gorm:"default:'pending';index" json:"status"`
	Source   string     `json:"source"`
}

// Notification represents an in-app alert for a user
type Notification struct {
	gorm.Model
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	LeadID  *uint  `gorm:"index" json:"lead_id,omitempty"`
	Message string `gorm:"type:text;not null" json:"message"`
	IsRead  bool   `gorm:"default:false" json:"is_read"`
	Source  string `json:"source"`
}

// CommunicationLog records an outbound or inbound touch with a lead
type CommunicationLog struct {
	gorm.Model
	LeadID    uint  `gorm:"not null;index" json:"lead_id"`
	ContactID *uint `gorm:"index" json:"contact_id,omitempty"`

	// email, sms, call
	Type      string `gorm:"not null" json:"type"`
	Direction string `gorm:"not null" json:"direction"` // outbound, inbound
	Source    string `json:"source"`

	Subject string `json:"subject,omitempty"`
	Body    string `gorm:"type:text" json:"body,omitempty"`

	// Nurturing metadata
	SequenceID *uint  `gorm:"index" json:"sequence_id,omitempty"`
	StepNumber *int   `json:"step_number,omitempty"`
	MessageID  string `json:"message_id,omitempty"`

	SentAt *time.Time `json:"sent_at,omitempty"`
}

// User represents an agent receiving tasks and notifications
type User struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"not null;uniqueIndex" json:"email"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}
