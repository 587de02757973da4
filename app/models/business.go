package models

import (
	"time"
)

// BusinessStatus is the moderation lifecycle state of a listing.
type BusinessStatus string

const (
	BusinessStatusDraft       BusinessStatus = "DRAFT"
	BusinessStatusPending     BusinessStatus = "PENDING"
	BusinessStatusActive      BusinessStatus = "ACTIVE"
	BusinessStatusSuspended   BusinessStatus = "SUSPENDED"
	BusinessStatusRejected    BusinessStatus = "REJECTED"
	BusinessStatusDeactivated BusinessStatus = "DEACTIVATED"
)

// Valid reports whether s is a known lifecycle status.
func (s BusinessStatus) Valid() bool {
	switch s {
	case BusinessStatusDraft, BusinessStatusPending, BusinessStatusActive,
		BusinessStatusSuspended, BusinessStatusRejected, BusinessStatusDeactivated:
		return true
	}
	return false
}

// PlanType is the subscription tier attached to a business.
type PlanType string

const (
	PlanFreeTrial PlanType = "FREE_TRIAL"
	PlanBasic     PlanType = "BASIC"
	PlanPro       PlanType = "PRO"
	PlanVIP       PlanType = "VIP"
)

// Valid reports whether p is a known plan tier.
func (p PlanType) Valid() bool {
	switch p {
	case PlanFreeTrial, PlanBasic, PlanPro, PlanVIP:
		return true
	}
	return false
}

// Business represents one directory listing
type Business struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(200)" json:"name" validate:"required,min=2,max=200"`
	Slug        string         `gorm:"uniqueIndex;type:varchar(220)" json:"slug" validate:"required,min=2,max=220"`
	Description string         `gorm:"type:text" json:"description" validate:"max=5000"`
	Phone       string         `gorm:"type:varchar(50);default:null" json:"phone,omitempty" validate:"max=50"`
	Email       string         `gorm:"type:varchar(200);default:null" json:"email,omitempty" validate:"omitempty,email,max=200"`
	Website     string         `gorm:"type:varchar(255);default:null" json:"website,omitempty" validate:"omitempty,url,max=255"`
	City        string         `gorm:"type:varchar(120);index" json:"city,omitempty" validate:"max=120"`
	OwnerID     uint           `gorm:"index;not null" json:"owner_id"`
	Owner       User           `gorm:"foreignKey:OwnerID" json:"-"`
	CategoryID  *uint          `gorm:"index" json:"category_id,omitempty"`
	Category    *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	PlanType    PlanType       `gorm:"type:varchar(20);default:'FREE_TRIAL'" json:"plan_type"`
	Status      BusinessStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	ViewCount   uint64         `gorm:"default:0" json:"view_count"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPublic reports whether the listing may appear on public surfaces.
func (b *Business) IsPublic() bool {
	return b.Status == BusinessStatusActive
}

// Category groups businesses in the directory
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(120)" json:"name" validate:"required,min=2,max=120"`
	Slug        string    `gorm:"uniqueIndex;type:varchar(140)" json:"slug" validate:"required,min=2,max=140"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Category model
func (Category) TableName() string {
	return "categories"
}
