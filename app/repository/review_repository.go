package repository

import (
	"github.com/ManuelReschke/BizFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reviewRepository implements the ReviewRepository interface
type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository instance
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create creates a new review in the database
func (r *reviewRepository) Create(review *models.Review) error {
	return r.db.Omit("Response").Create(review).Error
}

// GetByID retrieves a review with its owner response
func (r *reviewRepository) GetByID(id uint) (*models.Review, error) {
	var review models.Review
	err := r.db.Preload("Response").First(&review, id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) forBusiness(businessID uint, includeHidden bool) *gorm.DB {
	query := r.db.Preload("Response").Where("business_id = ?", businessID)
	if !includeHidden {
		query = query.Where("is_hidden = ?", false)
	}
	return query.Order("created_at DESC")
}

// ListForBusiness returns a page of reviews for a business, newest first
func (r *reviewRepository) ListForBusiness(businessID uint, includeHidden bool, offset, limit int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.forBusiness(businessID, includeHidden).Offset(offset).Limit(limit).Find(&reviews).Error
	return reviews, err
}

// ListAllForBusiness returns every review for a business, used for rating aggregation
func (r *reviewRepository) ListAllForBusiness(businessID uint, includeHidden bool) ([]models.Review, error) {
	var reviews []models.Review
	err := r.forBusiness(businessID, includeHidden).Find(&reviews).Error
	return reviews, err
}

// SetHidden toggles the moderation visibility flag
func (r *reviewRepository) SetHidden(id uint, hidden bool) error {
	return r.db.Model(&models.Review{}).Where("id = ?", id).Update("is_hidden", hidden).Error
}

// SaveResponse inserts the owner response or replaces the content of an existing one
func (r *reviewRepository) SaveResponse(response *models.OwnerResponse) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "review_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "responder_id", "updated_at"}),
	}).Create(response).Error
}

// CountVisible returns the number of reviews not hidden by moderation
func (r *reviewRepository) CountVisible() (int64, error) {
	var count int64
	err := r.db.Model(&models.Review{}).Where("is_hidden = ?", false).Count(&count).Error
	return count, err
}
