package repository

import (
	"github.com/ManuelReschke/BizFox/app/models"
	"gorm.io/gorm"
)

// leadRepository implements the LeadRepository interface
type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository instance
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(lead *models.Lead) error {
	return r.db.Create(lead).Error
}

func (r *leadRepository) GetByID(id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.First(&lead, id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// ListByBusiness returns a filtered page of leads for one business, newest first
func (r *leadRepository) ListByBusiness(businessID uint, filter LeadFilter, offset, limit int) ([]models.Lead, int64, error) {
	query := r.db.Model(&models.Lead{}).Where("business_id = ?", businessID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&leads).Error; err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// Update writes the status and timestamp fields of a lead
func (r *leadRepository) Update(lead *models.Lead) error {
	return r.db.Model(lead).Select("status", "priority", "viewed_at", "responded_at", "converted_at", "updated_at").Updates(lead).Error
}

// CountsForBusiness groups the leads of one business by status and priority
func (r *leadRepository) CountsForBusiness(businessID uint) (*LeadCounts, error) {
	counts := &LeadCounts{
		ByStatus:   make(map[models.LeadStatus]int64),
		ByPriority: make(map[models.LeadPriority]int64),
	}

	var byStatus []struct {
		Status models.LeadStatus
		Total  int64
	}
	err := r.db.Model(&models.Lead{}).
		Select("status, COUNT(*) AS total").
		Where("business_id = ?", businessID).
		Group("status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		counts.ByStatus[row.Status] = row.Total
		counts.Total += row.Total
	}

	var byPriority []struct {
		Priority models.LeadPriority
		Total    int64
	}
	err = r.db.Model(&models.Lead{}).
		Select("priority, COUNT(*) AS total").
		Where("business_id = ?", businessID).
		Group("priority").
		Scan(&byPriority).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byPriority {
		counts.ByPriority[row.Priority] = row.Total
	}

	return counts, nil
}

func (r *leadRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Lead{}).Count(&count).Error
	return count, err
}
