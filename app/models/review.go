package models

import (
	"time"
)

// Review is customer feedback for a business. AuthorID is nil for anonymous reviews.
type Review struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	BusinessID uint           `gorm:"index;not null" json:"business_id"`
	AuthorID   *uint          `gorm:"index" json:"author_id,omitempty"`
	AuthorName string         `gorm:"type:varchar(150);default:null" json:"author_name,omitempty" validate:"max=150"`
	Rating     int            `gorm:"type:tinyint;not null" json:"rating" validate:"required,min=1,max=5"`
	Title      string         `gorm:"type:varchar(200);default:null" json:"title,omitempty" validate:"max=200"`
	Content    string         `gorm:"type:text" json:"content" validate:"required,min=3,max=5000"`
	IsHidden   bool           `gorm:"default:false;index" json:"is_hidden"`
	Response   *OwnerResponse `gorm:"foreignKey:ReviewID" json:"response,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// OwnerResponse is the single public reply of the business owner to a review
type OwnerResponse struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ReviewID    uint      `gorm:"uniqueIndex;not null" json:"review_id"`
	ResponderID uint      `gorm:"index" json:"responder_id"`
	Content     string    `gorm:"type:text" json:"content" validate:"required,min=2,max=3000"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
