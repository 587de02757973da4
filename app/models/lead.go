package models

import (
	"time"
)

type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "LOW"
	LeadPriorityMedium LeadPriority = "MEDIUM"
	LeadPriorityHigh   LeadPriority = "HIGH"
	LeadPriorityUrgent LeadPriority = "URGENT"
)

type LeadStatus string

const (
	LeadStatusNew        LeadStatus = "NEW"
	LeadStatusViewed     LeadStatus = "VIEWED"
	LeadStatusContacted  LeadStatus = "CONTACTED"
	LeadStatusQualified  LeadStatus = "QUALIFIED"
	LeadStatusConverted  LeadStatus = "CONVERTED"
	LeadStatusClosedLost LeadStatus = "CLOSED_LOST"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusViewed, LeadStatusContacted,
		LeadStatusQualified, LeadStatusConverted, LeadStatusClosedLost:
		return true
	}
	return false
}

// Lead is an inbound customer inquiry for one business.
// The response timestamps are written once and never cleared.
type Lead struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	BusinessID  uint         `gorm:"index;not null" json:"business_id"`
	Name        string       `gorm:"type:varchar(150)" json:"name"`
	Email       string       `gorm:"type:varchar(200)" json:"email"`
	Phone       string       `gorm:"type:varchar(50);default:null" json:"phone,omitempty"`
	Company     string       `gorm:"type:varchar(200);default:null" json:"company,omitempty"`
	Message     string       `gorm:"type:text" json:"message"`
	Source      string       `gorm:"type:varchar(50);default:'website'" json:"source"`
	Priority    LeadPriority `gorm:"type:varchar(20);default:'MEDIUM';index" json:"priority"`
	Status      LeadStatus   `gorm:"type:varchar(20);default:'NEW';index" json:"status"`
	ViewedAt    *time.Time   `gorm:"type:timestamp;default:null" json:"viewed_at"`
	RespondedAt *time.Time   `gorm:"type:timestamp;default:null" json:"responded_at"`
	ConvertedAt *time.Time   `gorm:"type:timestamp;default:null" json:"converted_at"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}
