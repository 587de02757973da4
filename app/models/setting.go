package models

import (
	"time"
)

// Setting represents a platform setting. Value holds the string encoding of a
// typed value; Type names the encoding (string, boolean, number, json).
type Setting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=3,max=255"`
	Value       string    `gorm:"type:text" json:"value"`
	Type        string    `gorm:"size:50;not null" json:"type" validate:"required,oneof=string boolean number json"`
	Category    string    `gorm:"size:100;index" json:"category"`
	UpdatedByID *uint     `gorm:"index" json:"updated_by_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
