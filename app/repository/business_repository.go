package repository

import (
	"strings"

	"github.com/ManuelReschke/BizFox/app/models"
	"gorm.io/gorm"
)

// businessRepository implements the BusinessRepository interface
type businessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new business repository instance
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

// Create inserts a business without touching its associations
func (r *businessRepository) Create(business *models.Business) error {
	return r.db.Omit("Owner", "Category").Create(business).Error
}

// GetByID loads a business with owner and category
func (r *businessRepository) GetByID(id uint) (*models.Business, error) {
	var business models.Business
	err := r.db.Preload("Owner").Preload("Category").First(&business, id).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// GetBySlug loads a business by its unique slug
func (r *businessRepository) GetBySlug(slug string) (*models.Business, error) {
	var business models.Business
	err := r.db.Preload("Owner").Preload("Category").Where("slug = ?", slug).First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// FirstByOwner returns the oldest business of an owner
func (r *businessRepository) FirstByOwner(ownerID uint) (*models.Business, error) {
	var business models.Business
	err := r.db.Where("owner_id = ?", ownerID).Order("id ASC").First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

// ListByOwner returns all businesses of an owner, oldest first
func (r *businessRepository) ListByOwner(ownerID uint) ([]models.Business, error) {
	var businesses []models.Business
	err := r.db.Preload("Category").Where("owner_id = ?", ownerID).Order("id ASC").Find(&businesses).Error
	return businesses, err
}

// List returns a filtered page of businesses and the total number of matches
func (r *businessRepository) List(filter BusinessFilter, offset, limit int) ([]models.Business, int64, error) {
	query := r.db.Model(&models.Business{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if city := strings.TrimSpace(filter.City); city != "" {
		query = query.Where("city = ?", city)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var businesses []models.Business
	err := query.Preload("Category").
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&businesses).Error
	if err != nil {
		return nil, 0, err
	}
	return businesses, total, nil
}

// Update saves editable business fields
func (r *businessRepository) Update(business *models.Business) error {
	return r.db.Omit("Owner", "Category").Save(business).Error
}

// UpdateStatus sets a new lifecycle status as a single-row update.
// Callers load the business first; MySQL reports zero affected rows for unchanged values.
func (r *businessRepository) UpdateStatus(id uint, status models.BusinessStatus) error {
	return r.db.Model(&models.Business{}).Where("id = ?", id).Update("status", status).Error
}

// UpdatePlan sets the plan tier of a business
func (r *businessRepository) UpdatePlan(id uint, plan models.PlanType) error {
	return r.db.Model(&models.Business{}).Where("id = ?", id).Update("plan_type", plan).Error
}

// SlugExists reports whether any business already uses slug
func (r *businessRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Business{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// CountByStatus returns the number of businesses per lifecycle status
func (r *businessRepository) CountByStatus() (map[models.BusinessStatus]int64, error) {
	var rows []struct {
		Status models.BusinessStatus
		Total  int64
	}
	err := r.db.Model(&models.Business{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.BusinessStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
