// Package repotest provides in-memory repository implementations for service and handler tests.
package repotest

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"gorm.io/gorm"
)

// Store is a shared in-memory backing for all fake repositories.
// Set the *Err fields to make the matching repository fail.
type Store struct {
	mu sync.Mutex

	users      map[uint]*models.User
	providers  []*models.ProviderAccount
	businesses map[uint]*models.Business
	categories map[uint]*models.Category
	reviews    map[uint]*models.Review
	leads      map[uint]*models.Lead
	audit      []models.AdminActionLog
	settings   map[string]*models.Setting
	nextID     uint

	UserErr     error
	BusinessErr error
	AuditErr    error
	LeadErr     error
	SettingErr  error
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		users:      make(map[uint]*models.User),
		businesses: make(map[uint]*models.Business),
		categories: make(map[uint]*models.Category),
		reviews:    make(map[uint]*models.Review),
		leads:      make(map[uint]*models.Lead),
		settings:   make(map[string]*models.Setting),
	}
}

// Repositories wires fakes backed by s into the repository bundle
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:            &UserRepo{s},
		ProviderAccount: &ProviderAccountRepo{s},
		Business:        &BusinessRepo{s},
		Category:        &CategoryRepo{s},
		Review:          &ReviewRepo{s},
		Lead:            &LeadRepo{s},
		AuditLog:        &AuditLogRepo{s},
		Setting:         &SettingRepo{s},
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// AuditEntries returns a copy of the audit log in insertion order
func (s *Store) AuditEntries() []models.AdminActionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AdminActionLog, len(s.audit))
	copy(out, s.audit)
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// UserRepo is an in-memory repository.UserRepository
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == 0 {
		user.ID = r.s.id()
	}
	user.CreatedAt = time.Now()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) GetByID(id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.UserErr != nil {
		return nil, r.s.UserErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *UserRepo) Update(user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *UserRepo) TouchLastLogin(id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (r *UserRepo) List(offset, limit int) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, offset, limit), nil
}

func (r *UserRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

func (r *UserRepo) CountByRole() (map[models.Role]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[models.Role]int64)
	for _, u := range r.s.users {
		out[u.Role]++
	}
	return out, nil
}

// ProviderAccountRepo is an in-memory repository.ProviderAccountRepository
type ProviderAccountRepo struct{ s *Store }

func (r *ProviderAccountRepo) GetByProvider(provider, providerUserID string) (*models.ProviderAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.providers {
		if a.Provider == provider && a.ProviderUserID == providerUserID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *ProviderAccountRepo) Save(account *models.ProviderAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *account
	for i, a := range r.s.providers {
		if a.ID == account.ID && account.ID != 0 {
			r.s.providers[i] = &cp
			return nil
		}
	}
	if account.ID == 0 {
		account.ID = r.s.id()
		cp.ID = account.ID
	}
	r.s.providers = append(r.s.providers, &cp)
	return nil
}

// BusinessRepo is an in-memory repository.BusinessRepository
type BusinessRepo struct{ s *Store }

func (r *BusinessRepo) hydrate(b *models.Business) *models.Business {
	cp := *b
	if owner, ok := r.s.users[b.OwnerID]; ok {
		cp.Owner = *owner
	}
	if b.CategoryID != nil {
		if c, ok := r.s.categories[*b.CategoryID]; ok {
			cc := *c
			cp.Category = &cc
		}
	}
	return &cp
}

func (r *BusinessRepo) Create(business *models.Business) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return r.s.BusinessErr
	}
	for _, b := range r.s.businesses {
		if b.Slug == business.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	if business.ID == 0 {
		business.ID = r.s.id()
	}
	if business.Status == "" {
		business.Status = models.BusinessStatusPending
	}
	if business.PlanType == "" {
		business.PlanType = models.PlanFreeTrial
	}
	now := time.Now()
	business.CreatedAt, business.UpdatedAt = now, now
	cp := *business
	cp.Owner = models.User{}
	cp.Category = nil
	r.s.businesses[business.ID] = &cp
	return nil
}

func (r *BusinessRepo) GetByID(id uint) (*models.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return nil, r.s.BusinessErr
	}
	b, ok := r.s.businesses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.hydrate(b), nil
}

func (r *BusinessRepo) GetBySlug(slug string) (*models.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return nil, r.s.BusinessErr
	}
	for _, b := range r.s.businesses {
		if b.Slug == slug {
			return r.hydrate(b), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *BusinessRepo) sorted(match func(*models.Business) bool) []models.Business {
	out := []models.Business{}
	for _, b := range r.s.businesses {
		if match(b) {
			out = append(out, *r.hydrate(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *BusinessRepo) FirstByOwner(ownerID uint) (*models.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return nil, r.s.BusinessErr
	}
	owned := r.sorted(func(b *models.Business) bool { return b.OwnerID == ownerID })
	if len(owned) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &owned[0], nil
}

func (r *BusinessRepo) ListByOwner(ownerID uint) ([]models.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return nil, r.s.BusinessErr
	}
	return r.sorted(func(b *models.Business) bool { return b.OwnerID == ownerID }), nil
}

func (r *BusinessRepo) List(filter repository.BusinessFilter, offset, limit int) ([]models.Business, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return nil, 0, r.s.BusinessErr
	}
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	all := r.sorted(func(b *models.Business) bool {
		if filter.Status != "" && b.Status != filter.Status {
			return false
		}
		if filter.CategoryID != 0 && (b.CategoryID == nil || *b.CategoryID != filter.CategoryID) {
			return false
		}
		if filter.City != "" && b.City != filter.City {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(b.Name), q) && !strings.Contains(strings.ToLower(b.Description), q) {
			return false
		}
		return true
	})
	return page(all, offset, limit), int64(len(all)), nil
}

func (r *BusinessRepo) Update(business *models.Business) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return r.s.BusinessErr
	}
	business.UpdatedAt = time.Now()
	cp := *business
	cp.Owner = models.User{}
	cp.Category = nil
	r.s.businesses[business.ID] = &cp
	return nil
}

func (r *BusinessRepo) UpdateStatus(id uint, status models.BusinessStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return r.s.BusinessErr
	}
	b, ok := r.s.businesses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	return nil
}

func (r *BusinessRepo) UpdatePlan(id uint, plan models.PlanType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return r.s.BusinessErr
	}
	b, ok := r.s.businesses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.PlanType = plan
	b.UpdatedAt = time.Now()
	return nil
}

func (r *BusinessRepo) SlugExists(slug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.BusinessErr != nil {
		return false, r.s.BusinessErr
	}
	for _, b := range r.s.businesses {
		if b.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *BusinessRepo) CountByStatus() (map[models.BusinessStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[models.BusinessStatus]int64)
	for _, b := range r.s.businesses {
		out[b.Status]++
	}
	return out, nil
}

// CategoryRepo is an in-memory repository.CategoryRepository
type CategoryRepo struct{ s *Store }

func (r *CategoryRepo) Create(category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if category.ID == 0 {
		category.ID = r.s.id()
	}
	cp := *category
	r.s.categories[category.ID] = &cp
	return nil
}

func (r *CategoryRepo) GetByID(id uint) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CategoryRepo) GetBySlug(slug string) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *CategoryRepo) List() ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepo) SlugExists(slug string) (bool, error) {
	_, err := r.GetBySlug(slug)
	return err == nil, nil
}

func (r *CategoryRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.categories)), nil
}

// ReviewRepo is an in-memory repository.ReviewRepository
type ReviewRepo struct{ s *Store }

func (r *ReviewRepo) Create(review *models.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if review.ID == 0 {
		review.ID = r.s.id()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	cp := *review
	r.s.reviews[review.ID] = &cp
	return nil
}

func (r *ReviewRepo) GetByID(id uint) (*models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rv
	return &cp, nil
}

func (r *ReviewRepo) forBusiness(businessID uint, includeHidden bool) []models.Review {
	out := []models.Review{}
	for _, rv := range r.s.reviews {
		if rv.BusinessID != businessID || (!includeHidden && rv.IsHidden) {
			continue
		}
		out = append(out, *rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *ReviewRepo) ListForBusiness(businessID uint, includeHidden bool, offset, limit int) ([]models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.forBusiness(businessID, includeHidden), offset, limit), nil
}

func (r *ReviewRepo) ListAllForBusiness(businessID uint, includeHidden bool) ([]models.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.forBusiness(businessID, includeHidden), nil
}

func (r *ReviewRepo) SetHidden(id uint, hidden bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rv.IsHidden = hidden
	return nil
}

func (r *ReviewRepo) SaveResponse(response *models.OwnerResponse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[response.ReviewID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if rv.Response != nil {
		response.ID = rv.Response.ID
		response.CreatedAt = rv.Response.CreatedAt
	} else {
		response.ID = r.s.id()
		response.CreatedAt = time.Now()
	}
	response.UpdatedAt = time.Now()
	cp := *response
	rv.Response = &cp
	return nil
}

func (r *ReviewRepo) CountVisible() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, rv := range r.s.reviews {
		if !rv.IsHidden {
			n++
		}
	}
	return n, nil
}

// LeadRepo is an in-memory repository.LeadRepository
type LeadRepo struct{ s *Store }

func (r *LeadRepo) Create(lead *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.LeadErr != nil {
		return r.s.LeadErr
	}
	if lead.ID == 0 {
		lead.ID = r.s.id()
	}
	lead.CreatedAt = time.Now()
	cp := *lead
	r.s.leads[lead.ID] = &cp
	return nil
}

func (r *LeadRepo) GetByID(id uint) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.LeadErr != nil {
		return nil, r.s.LeadErr
	}
	l, ok := r.s.leads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *LeadRepo) ListByBusiness(businessID uint, filter repository.LeadFilter, offset, limit int) ([]models.Lead, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Lead{}
	for _, l := range r.s.leads {
		if l.BusinessID != businessID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && l.Priority != filter.Priority {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, offset, limit), int64(len(out)), nil
}

func (r *LeadRepo) Update(lead *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.LeadErr != nil {
		return r.s.LeadErr
	}
	lead.UpdatedAt = time.Now()
	cp := *lead
	r.s.leads[lead.ID] = &cp
	return nil
}

func (r *LeadRepo) CountsForBusiness(businessID uint) (*repository.LeadCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := &repository.LeadCounts{
		ByStatus:   make(map[models.LeadStatus]int64),
		ByPriority: make(map[models.LeadPriority]int64),
	}
	for _, l := range r.s.leads {
		if l.BusinessID != businessID {
			continue
		}
		counts.Total++
		counts.ByStatus[l.Status]++
		counts.ByPriority[l.Priority]++
	}
	return counts, nil
}

func (r *LeadRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.leads)), nil
}

// AuditLogRepo is an in-memory repository.AuditLogRepository
type AuditLogRepo struct{ s *Store }

func (r *AuditLogRepo) Create(entry *models.AdminActionLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AuditErr != nil {
		return r.s.AuditErr
	}
	entry.ID = r.s.id()
	entry.CreatedAt = time.Now()
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

func (r *AuditLogRepo) List(filter repository.AuditFilter, offset, limit int) ([]models.AdminActionLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.AdminActionLog{}
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		e := r.s.audit[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.TargetType != "" && e.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		out = append(out, e)
	}
	return page(out, offset, limit), int64(len(out)), nil
}

func (r *AuditLogRepo) Count() (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.audit)), nil
}

// SettingRepo is an in-memory repository.SettingRepository
type SettingRepo struct{ s *Store }

func (r *SettingRepo) List() ([]models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.SettingErr != nil {
		return nil, r.s.SettingErr
	}
	out := make([]models.Setting, 0, len(r.s.settings))
	for _, st := range r.s.settings {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *SettingRepo) GetByKey(key string) (*models.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.SettingErr != nil {
		return nil, r.s.SettingErr
	}
	st, ok := r.s.settings[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *st
	return &cp, nil
}

func (r *SettingRepo) Upsert(setting *models.Setting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.SettingErr != nil {
		return r.s.SettingErr
	}
	if existing, ok := r.s.settings[setting.Key]; ok {
		setting.ID = existing.ID
		setting.CreatedAt = existing.CreatedAt
	} else {
		setting.ID = r.s.id()
		setting.CreatedAt = time.Now()
	}
	setting.UpdatedAt = time.Now()
	cp := *setting
	r.s.settings[setting.Key] = &cp
	return nil
}

// IDString formats an id the way audit entries store target ids
func IDString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
