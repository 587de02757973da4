package statistics

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/cache"
)

const (
	CacheKeyPublic  = "statistics:public"
	CacheExpiration = 30 * time.Minute
)

// Cache is the JSON cache the public statistics are kept in
type Cache interface {
	GetJSON(key string, v interface{}) error
	SetJSON(key string, v interface{}, expiration time.Duration) error
}

type redisCache struct{}

func (redisCache) GetJSON(key string, v interface{}) error {
	return cache.GetJSON(key, v)
}

func (redisCache) SetJSON(key string, v interface{}, expiration time.Duration) error {
	return cache.SetJSON(key, v, expiration)
}

// RedisCache stores statistics in the shared Redis cache
func RedisCache() Cache {
	return redisCache{}
}

// PublicStats are shown on the landing page
type PublicStats struct {
	ActiveBusinesses int64 `json:"active_businesses"`
	VisibleReviews   int64 `json:"visible_reviews"`
	Categories       int64 `json:"categories"`
}

// AdminStats is the uncached platform overview for staff
type AdminStats struct {
	BusinessesByStatus map[models.BusinessStatus]int64 `json:"businesses_by_status"`
	Users              int64                           `json:"users"`
	UsersByRole        map[models.Role]int64           `json:"users_by_role"`
	Leads              int64                           `json:"leads"`
	VisibleReviews     int64                           `json:"visible_reviews"`
	AuditEntries       int64                           `json:"audit_entries"`
}

type Service struct {
	repos *repository.Repositories
	cache Cache
}

func NewService(repos *repository.Repositories, c Cache) *Service {
	return &Service{repos: repos, cache: c}
}

// Public returns the landing page numbers, from cache when present
func (s *Service) Public() (*PublicStats, error) {
	var stats PublicStats
	if s.cache != nil {
		if err := s.cache.GetJSON(CacheKeyPublic, &stats); err == nil {
			return &stats, nil
		}
	}

	fresh, err := s.computePublic()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(CacheKeyPublic, fresh, CacheExpiration); err != nil {
			log.Warnf("[Statistics] caching public stats failed: %v", err)
		}
	}
	return fresh, nil
}

// RefreshPublic recomputes the public numbers and replaces the cached copy
func (s *Service) RefreshPublic() error {
	fresh, err := s.computePublic()
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.SetJSON(CacheKeyPublic, fresh, CacheExpiration)
}

func (s *Service) computePublic() (*PublicStats, error) {
	byStatus, err := s.repos.Business.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("count businesses: %w", err)
	}
	reviews, err := s.repos.Review.CountVisible()
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	categories, err := s.repos.Category.Count()
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	return &PublicStats{
		ActiveBusinesses: byStatus[models.BusinessStatusActive],
		VisibleReviews:   reviews,
		Categories:       categories,
	}, nil
}

// Admin returns the staff overview. It always reads the database.
func (s *Service) Admin() (*AdminStats, error) {
	byStatus, err := s.repos.Business.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("count businesses: %w", err)
	}
	users, err := s.repos.User.Count()
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	byRole, err := s.repos.User.CountByRole()
	if err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	leads, err := s.repos.Lead.Count()
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	reviews, err := s.repos.Review.CountVisible()
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	audits, err := s.repos.AuditLog.Count()
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	return &AdminStats{
		BusinessesByStatus: byStatus,
		Users:              users,
		UsersByRole:        byRole,
		Leads:              leads,
		VisibleReviews:     reviews,
		AuditEntries:       audits,
	}, nil
}
