package repository

import (
	"github.com/ManuelReschke/BizFox/app/models"
	"gorm.io/gorm"
)

type providerAccountRepository struct {
	db *gorm.DB
}

// NewProviderAccountRepository creates a new provider account repository instance
func NewProviderAccountRepository(db *gorm.DB) ProviderAccountRepository {
	return &providerAccountRepository{db: db}
}

// GetByProvider looks up a linked identity by provider name and the provider's user id
func (r *providerAccountRepository) GetByProvider(provider, providerUserID string) (*models.ProviderAccount, error) {
	var account models.ProviderAccount
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Save inserts or updates a linked identity
func (r *providerAccountRepository) Save(account *models.ProviderAccount) error {
	return r.db.Save(account).Error
}
