package repository

import (
	"github.com/ManuelReschke/BizFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// settingRepository implements the SettingRepository interface
type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new setting repository instance
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// List returns every stored setting ordered by key
func (r *settingRepository) List() ([]models.Setting, error) {
	var settings []models.Setting
	err := r.db.Order("setting_key ASC").Find(&settings).Error
	return settings, err
}

// GetByKey retrieves a single setting. Correct column is `setting_key` (see gorm tag in models.Setting)
func (r *settingRepository) GetByKey(key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.Where("setting_key = ?", key).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert inserts the setting or overwrites value, type, category and editor of the existing key
func (r *settingRepository) Upsert(setting *models.Setting) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "category", "updated_by_id", "updated_at"}),
	}).Create(setting).Error
}
