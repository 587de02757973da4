package repository

import (
	"github.com/ManuelReschke/BizFox/app/models"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository instance
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create appends one entry to the audit log
func (r *auditLogRepository) Create(entry *models.AdminActionLog) error {
	return r.db.Create(entry).Error
}

// List returns a filtered page of audit entries, newest first
func (r *auditLogRepository) List(filter AuditFilter, offset, limit int) ([]models.AdminActionLog, int64, error) {
	query := r.db.Model(&models.AdminActionLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AdminActionLog
	if err := query.Order("id DESC").Offset(offset).Limit(limit).Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *auditLogRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.AdminActionLog{}).Count(&count).Error
	return count, err
}
