// Package leads handles inquiry intake, priority triage and status progression.
package leads

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizFox/internal/pkg/events"
	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
)

// Service manages leads of businesses
type Service struct {
	businesses  repository.BusinessRepository
	leads       repository.LeadRepository
	engine      *access.Engine
	dispatcher  notify.Dispatcher
	publisher   events.Publisher
	notifyOwner func() bool
	now         func() time.Time
	validate    *validator.Validate
}

// Option configures a Service
type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithOwnerNotification enables the new-lead email when fn returns true
func WithOwnerNotification(fn func() bool) Option {
	return func(s *Service) { s.notifyOwner = fn }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repos *repository.Repositories, engine *access.Engine, dispatcher notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		businesses:  repos.Business,
		leads:       repos.Lead,
		engine:      engine,
		dispatcher:  dispatcher,
		publisher:   events.NopPublisher{},
		notifyOwner: func() bool { return false },
		now:         time.Now,
		validate:    apperror.NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput is a customer inquiry
type SubmitInput struct {
	BusinessID uint   `json:"businessId" validate:"required"`
	Name       string `json:"name" validate:"required,min=2,max=150"`
	Email      string `json:"email" validate:"required,email,max=200"`
	Phone      string `json:"phone" validate:"max=50"`
	Company    string `json:"company" validate:"max=200"`
	Message    string `json:"message" validate:"required,min=2,max=5000"`
	Source     string `json:"source" validate:"max=50"`
}

// SubmitResult is returned to the customer
type SubmitResult struct {
	Lead                 *models.Lead `json:"-"`
	LeadID               uint         `json:"leadId"`
	ExpectedResponseTime string       `json:"expectedResponseTime"`
}

// Submit stores a new lead for an ACTIVE business. Inactive or missing
// businesses are reported as not found.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.FromValidator(err)
	}

	business, err := s.businesses.GetByID(in.BusinessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("business")
		}
		return nil, apperror.Internal(err)
	}
	if !business.IsPublic() {
		return nil, apperror.NotFound("business")
	}

	source := in.Source
	if source == "" {
		source = "website"
	}

	lead := &models.Lead{
		BusinessID: business.ID,
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Company:    in.Company,
		Message:    in.Message,
		Source:     source,
		Priority:   ComputePriority(business.PlanType, in.Message),
		Status:     models.LeadStatusNew,
	}
	if err := s.leads.Create(lead); err != nil {
		return nil, apperror.Internal(err)
	}

	prom.LeadsSubmitted.WithLabelValues(string(lead.Priority)).Inc()
	log.Infof("[Leads] lead %d for business %d created with priority %s", lead.ID, business.ID, lead.Priority)

	events.PublishBestEffort(ctx, s.publisher, events.SubjectLeadCreated, map[string]any{
		"lead_id":     lead.ID,
		"business_id": business.ID,
		"priority":    string(lead.Priority),
		"source":      lead.Source,
	})
	s.notify(ctx, business, lead)

	return &SubmitResult{
		Lead:                 lead,
		LeadID:               lead.ID,
		ExpectedResponseTime: entitlements.ExpectedResponseTime(business.PlanType),
	}, nil
}

func (s *Service) notify(ctx context.Context, business *models.Business, lead *models.Lead) {
	if !s.notifyOwner() || business.Owner.Email == "" {
		return
	}
	msg := notify.Message{
		Kind: notify.KindLeadReceived,
		LeadReceived: &notify.LeadReceived{
			BusinessID:   business.ID,
			BusinessName: business.Name,
			OwnerEmail:   business.Owner.Email,
			LeadID:       lead.ID,
			LeadName:     lead.Name,
			LeadEmail:    lead.Email,
			Message:      lead.Message,
			Priority:     string(lead.Priority),
		},
	}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		log.Errorf("[Leads] owner notification for lead %d failed: %v", lead.ID, err)
	}
}

// authorizeBusiness loads the business and checks owner-or-admin access
func (s *Service) authorizeBusiness(p access.Principal, businessID uint) (*models.Business, error) {
	business, err := s.businesses.GetByID(businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("business")
		}
		return nil, apperror.Internal(err)
	}
	if err := s.engine.AuthorizeBusinessAccess(p, business).Err(); err != nil {
		return nil, err
	}
	return business, nil
}

func (s *Service) load(businessID, leadID uint) (*models.Lead, error) {
	lead, err := s.leads.GetByID(leadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("lead")
		}
		return nil, apperror.Internal(err)
	}
	if lead.BusinessID != businessID {
		return nil, apperror.NotFound("lead")
	}
	return lead, nil
}

// List returns a page of leads for a business the caller may access
func (s *Service) List(ctx context.Context, p access.Principal, businessID uint, filter repository.LeadFilter, offset, limit int) ([]models.Lead, int64, error) {
	if _, err := s.authorizeBusiness(p, businessID); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperror.Validation("unknown status", apperror.FieldError{Field: "status", Message: "is not a known lead status"})
	}
	leads, total, err := s.leads.ListByBusiness(businessID, filter, offset, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return leads, total, nil
}

// Get returns a lead and marks it seen: a NEW lead becomes VIEWED with
// viewedAt stamped. Reading an already viewed lead writes nothing.
func (s *Service) Get(ctx context.Context, p access.Principal, businessID, leadID uint) (*models.Lead, error) {
	if _, err := s.authorizeBusiness(p, businessID); err != nil {
		return nil, err
	}
	lead, err := s.load(businessID, leadID)
	if err != nil {
		return nil, err
	}
	return s.markViewedIfNew(lead)
}

func (s *Service) markViewedIfNew(lead *models.Lead) (*models.Lead, error) {
	if lead.Status != models.LeadStatusNew {
		return lead, nil
	}
	lead.Status = models.LeadStatusViewed
	if lead.ViewedAt == nil {
		now := s.now()
		lead.ViewedAt = &now
	}
	if err := s.leads.Update(lead); err != nil {
		return nil, apperror.Internal(err)
	}
	return lead, nil
}

// Advance sets a new status. Any known status may follow any other, but the
// viewed, responded and converted timestamps are only set the first time.
func (s *Service) Advance(ctx context.Context, p access.Principal, businessID, leadID uint, status models.LeadStatus) (*models.Lead, error) {
	if !status.Valid() {
		return nil, apperror.Validation("unknown status", apperror.FieldError{Field: "status", Message: "is not a known lead status"})
	}
	if _, err := s.authorizeBusiness(p, businessID); err != nil {
		return nil, err
	}
	lead, err := s.load(businessID, leadID)
	if err != nil {
		return nil, err
	}

	ApplyStatus(lead, status, s.now())
	if err := s.leads.Update(lead); err != nil {
		return nil, apperror.Internal(err)
	}
	log.Infof("[Leads] lead %d of business %d moved to %s by user %d", lead.ID, businessID, status, p.UserID)
	return lead, nil
}

// ApplyStatus sets status and stamps the matching timestamp if it is still unset
func ApplyStatus(lead *models.Lead, status models.LeadStatus, now time.Time) {
	lead.Status = status

	var stamp **time.Time
	switch status {
	case models.LeadStatusViewed:
		stamp = &lead.ViewedAt
	case models.LeadStatusContacted:
		stamp = &lead.RespondedAt
	case models.LeadStatusConverted:
		stamp = &lead.ConvertedAt
	default:
		return
	}
	if *stamp == nil {
		t := now
		*stamp = &t
	}
}

// Counts returns lead totals by status and priority for analytics
func (s *Service) Counts(businessID uint) (*repository.LeadCounts, error) {
	counts, err := s.leads.CountsForBusiness(businessID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return counts, nil
}
