package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit action tags
const (
	ActionBusinessStatusChange = "BUSINESS_STATUS_CHANGE"
	ActionBusinessPlanChange   = "BUSINESS_PLAN_CHANGE"
	ActionSettingsUpdate       = "SETTINGS_UPDATE"
	ActionReviewHidden         = "REVIEW_HIDDEN"
	ActionReviewShown          = "REVIEW_SHOWN"
	ActionEmailDispatch        = "EMAIL_DISPATCH"
	ActionCategoryCreate       = "CATEGORY_CREATE"
	ActionUserUpdate           = "USER_UPDATE"
)

// Audit target types
const (
	TargetBusiness = "business"
	TargetReview   = "review"
	TargetSetting  = "setting"
	TargetUser     = "user"
	TargetCategory = "category"
	TargetEmail    = "email"
)

// AdminActionLog is an append-only audit record of a privileged mutation.
// AdminID is nil only when the development admin bypass was engaged.
type AdminActionLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	AdminID    *uint             `gorm:"index" json:"admin_id"`
	Action     string            `gorm:"type:varchar(64);index;not null" json:"action"`
	TargetType string            `gorm:"type:varchar(32);index" json:"target_type"`
	TargetID   string            `gorm:"type:varchar(64);index" json:"target_id"`
	Details    datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt  time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}
