package repository

import (
	"github.com/ManuelReschke/BizFox/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	TouchLastLogin(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	CountByRole() (map[models.Role]int64, error)
}

// ProviderAccountRepository defines the interface for linked OAuth identities
type ProviderAccountRepository interface {
	GetByProvider(provider, providerUserID string) (*models.ProviderAccount, error)
	Save(account *models.ProviderAccount) error
}

// BusinessFilter narrows business listings. Zero values do not filter.
type BusinessFilter struct {
	Status     models.BusinessStatus
	CategoryID uint
	Query      string
	City       string
}

// BusinessRepository defines the interface for business listing operations
type BusinessRepository interface {
	Create(business *models.Business) error
	GetByID(id uint) (*models.Business, error)
	GetBySlug(slug string) (*models.Business, error)
	FirstByOwner(ownerID uint) (*models.Business, error)
	ListByOwner(ownerID uint) ([]models.Business, error)
	List(filter BusinessFilter, offset, limit int) ([]models.Business, int64, error)
	Update(business *models.Business) error
	UpdateStatus(id uint, status models.BusinessStatus) error
	UpdatePlan(id uint, plan models.PlanType) error
	SlugExists(slug string) (bool, error)
	CountByStatus() (map[models.BusinessStatus]int64, error)
}

// CategoryRepository defines the interface for category operations
type CategoryRepository interface {
	Create(category *models.Category) error
	GetByID(id uint) (*models.Category, error)
	GetBySlug(slug string) (*models.Category, error)
	List() ([]models.Category, error)
	SlugExists(slug string) (bool, error)
	Count() (int64, error)
}

// ReviewRepository defines the interface for review operations
type ReviewRepository interface {
	Create(review *models.Review) error
	GetByID(id uint) (*models.Review, error)
	ListForBusiness(businessID uint, includeHidden bool, offset, limit int) ([]models.Review, error)
	ListAllForBusiness(businessID uint, includeHidden bool) ([]models.Review, error)
	SetHidden(id uint, hidden bool) error
	SaveResponse(response *models.OwnerResponse) error
	CountVisible() (int64, error)
}

// LeadFilter narrows lead listings. Zero values do not filter.
type LeadFilter struct {
	Status   models.LeadStatus
	Priority models.LeadPriority
}

// LeadCounts aggregates leads of one business by status and priority
type LeadCounts struct {
	Total      int64                         `json:"total"`
	ByStatus   map[models.LeadStatus]int64   `json:"by_status"`
	ByPriority map[models.LeadPriority]int64 `json:"by_priority"`
}

// LeadRepository defines the interface for lead operations
type LeadRepository interface {
	Create(lead *models.Lead) error
	GetByID(id uint) (*models.Lead, error)
	ListByBusiness(businessID uint, filter LeadFilter, offset, limit int) ([]models.Lead, int64, error)
	Update(lead *models.Lead) error
	CountsForBusiness(businessID uint) (*LeadCounts, error)
	Count() (int64, error)
}

// AuditFilter narrows audit log listings. Zero values do not filter.
type AuditFilter struct {
	Action     string
	TargetType string
	TargetID   string
}

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	Create(entry *models.AdminActionLog) error
	List(filter AuditFilter, offset, limit int) ([]models.AdminActionLog, int64, error)
	Count() (int64, error)
}

// SettingRepository defines the interface for platform settings
type SettingRepository interface {
	List() ([]models.Setting, error)
	GetByKey(key string) (*models.Setting, error)
	Upsert(setting *models.Setting) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User            UserRepository
	ProviderAccount ProviderAccountRepository
	Business        BusinessRepository
	Category        CategoryRepository
	Review          ReviewRepository
	Lead            LeadRepository
	AuditLog        AuditLogRepository
	Setting         SettingRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		ProviderAccount: NewProviderAccountRepository(db),
		Business:        NewBusinessRepository(db),
		Category:        NewCategoryRepository(db),
		Review:          NewReviewRepository(db),
		Lead:            NewLeadRepository(db),
		AuditLog:        NewAuditLogRepository(db),
		Setting:         NewSettingRepository(db),
	}
}
