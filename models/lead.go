package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead represents a single prospect in the CRM
type Lead struct {
	gorm.Model
	BuyerName  string `json:"buyer_name"`
	BuyerEmail string `gorm:"index" json:"buyer_email"`
	BuyerPhone string `json:"buyer_phone"`
	Location   string `json:"location"`

	// new, contacted, visit_scheduled, proposal, negotiation, won, lost
	Status              string `gorm:"default:'new';index" json:"status"`
	QualificationStatus string `json:"qualification_status"`
	LeadSource          string `json:"lead_source"`
	LeadType            string `json:"lead_type"`

	AssignedTo *uint `gorm:"index" json:"assigned_to"`
	ContactID  *uint `gorm:"index" json:"contact_id,omitempty"`

	LastContactAt    *time.Time `json:"last_contact_date,omitempty"`
	LastEngagementAt *time.Time `json:"last_engagement_date,omitempty"`

	// Mutated only by the nurturing engine
	NurturingSequenceID *uint  `gorm:"index" json:"nurturing_sequence_id,omitempty"`
	NurturingStatus     string `json:"nurturing_status,omitempty"`
}

// Contacted reports whether the lead has moved past the initial status.
func (l *Lead) Contacted() bool {
	return l.Status != "new"
}
