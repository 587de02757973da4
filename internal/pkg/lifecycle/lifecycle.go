// Package lifecycle moves businesses through their moderation states and
// records every admin change in the audit log.
package lifecycle

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
	"github.com/ManuelReschke/BizFox/internal/pkg/events"
	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
	"github.com/ManuelReschke/BizFox/internal/pkg/slug"
)

// Service owns business creation and status changes
type Service struct {
	businesses  repository.BusinessRepository
	categories  repository.CategoryRepository
	recorder    *audit.Recorder
	dispatcher  notify.Dispatcher
	publisher   events.Publisher
	mode        Mode
	autoApprove func() bool
	validate    *validator.Validate
}

// Option configures a Service
type Option func(*Service)

func WithMode(mode Mode) Option {
	return func(s *Service) { s.mode = mode }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithAutoApprove makes submitted businesses start ACTIVE when fn returns true
func WithAutoApprove(fn func() bool) Option {
	return func(s *Service) { s.autoApprove = fn }
}

func NewService(repos *repository.Repositories, recorder *audit.Recorder, dispatcher notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		businesses:  repos.Business,
		categories:  repos.Category,
		recorder:    recorder,
		dispatcher:  dispatcher,
		publisher:   events.NopPublisher{},
		mode:        ModeStrict,
		autoApprove: func() bool { return false },
		validate:    apperror.NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mode == ModePermissive {
		log.Warn("[Lifecycle] permissive transitions enabled: any status may follow any other")
	}
	return s
}

// Mode returns the active transition mode
func (s *Service) Mode() Mode {
	return s.mode
}

// CreateInput is an owner's request to list a business
type CreateInput struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Slug        string `json:"slug" validate:"omitempty,max=220"`
	CategoryID  *uint  `json:"categoryId"`
	Description string `json:"description" validate:"max=5000"`
	Phone       string `json:"phone" validate:"max=50"`
	Email       string `json:"email" validate:"omitempty,email,max=200"`
	Website     string `json:"website" validate:"omitempty,url,max=255"`
	City        string `json:"city" validate:"max=120"`
	SaveAsDraft bool   `json:"saveAsDraft"`
}

// Create inserts a new business owned by owner on the FREE_TRIAL plan.
// It starts in DRAFT when saved as draft, otherwise PENDING (or ACTIVE with auto approval).
func (s *Service) Create(ctx context.Context, owner access.Principal, in CreateInput) (*models.Business, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.FromValidator(err)
	}

	if in.CategoryID != nil {
		if _, err := s.categories.GetByID(*in.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.Validation("unknown category", apperror.FieldError{Field: "category_id", Message: "does not exist"})
			}
			return nil, apperror.Internal(err)
		}
	}

	businessSlug, err := s.resolveSlug(in)
	if err != nil {
		return nil, err
	}

	status := models.BusinessStatusPending
	switch {
	case in.SaveAsDraft:
		status = models.BusinessStatusDraft
	case s.autoApprove():
		status = models.BusinessStatusActive
	}

	business := &models.Business{
		Name:        in.Name,
		Slug:        businessSlug,
		Description: in.Description,
		Phone:       in.Phone,
		Email:       in.Email,
		Website:     in.Website,
		City:        in.City,
		OwnerID:     owner.UserID,
		CategoryID:  in.CategoryID,
		PlanType:    models.PlanFreeTrial,
		Status:      status,
	}
	if err := s.businesses.Create(business); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.New(apperror.CodeSlugTaken, "slug "+businessSlug+" is already taken")
		}
		return nil, apperror.Internal(err)
	}

	log.Infof("[Lifecycle] business %d (%s) created by user %d in %s", business.ID, business.Slug, owner.UserID, status)
	return business, nil
}

func (s *Service) resolveSlug(in CreateInput) (string, error) {
	if in.Slug != "" {
		if !slug.Valid(in.Slug) {
			return "", apperror.Validation("invalid slug", apperror.FieldError{
				Field: "slug", Message: "must contain lowercase letters, digits and single hyphens",
			})
		}
		taken, err := s.businesses.SlugExists(in.Slug)
		if err != nil {
			return "", apperror.Internal(err)
		}
		if taken {
			return "", apperror.New(apperror.CodeSlugTaken, "slug "+in.Slug+" is already taken")
		}
		return in.Slug, nil
	}

	derived, err := slug.Unique(slug.Make(in.Name), s.businesses.SlugExists)
	if err != nil {
		return "", apperror.Internal(err)
	}
	return derived, nil
}

// SubmitDraft moves an owner's DRAFT business to PENDING for review
func (s *Service) SubmitDraft(ctx context.Context, owner access.Principal, businessID uint) (*models.Business, error) {
	business, err := s.load(businessID)
	if err != nil {
		return nil, err
	}
	if business.OwnerID != owner.UserID {
		return nil, apperror.Forbidden("you do not own this business")
	}
	if business.Status != models.BusinessStatusDraft {
		return nil, apperror.InvalidTransition(string(business.Status), string(models.BusinessStatusPending))
	}

	if err := s.businesses.UpdateStatus(business.ID, models.BusinessStatusPending); err != nil {
		return nil, apperror.Internal(err)
	}
	business.Status = models.BusinessStatusPending
	business.UpdatedAt = time.Now()
	prom.StatusTransitions.WithLabelValues(string(models.BusinessStatusDraft), string(models.BusinessStatusPending)).Inc()
	return business, nil
}

// SetStatusInput is an admin status change request
type SetStatusInput struct {
	BusinessID uint                  `json:"businessId" validate:"required"`
	Status     models.BusinessStatus `json:"status" validate:"required"`
	Reason     string                `json:"reason" validate:"max=1000"`
	Notify     bool                  `json:"sendEmail"`
}

// SetStatusResult reports the outcome of SetStatus
type SetStatusResult struct {
	Business           *models.Business       `json:"business"`
	Success            bool                   `json:"success"`
	NotificationQueued bool                   `json:"notificationQueued"`
	AuditEntry         *models.AdminActionLog `json:"-"`
}

// SetStatus applies an admin status change. The status write comes first,
// then the audit entry, then the optional owner notification. Notification
// problems are logged and never fail the call; only NotFound, validation and
// persistence errors are returned.
func (s *Service) SetStatus(ctx context.Context, actor access.Principal, in SetStatusInput) (*SetStatusResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, apperror.FromValidator(err)
	}
	if !in.Status.Valid() {
		return nil, apperror.Validation("unknown status", apperror.FieldError{Field: "status", Message: "is not a known business status"})
	}

	business, err := s.load(in.BusinessID)
	if err != nil {
		return nil, err
	}

	previous := business.Status
	if !CanTransition(s.mode, previous, in.Status) {
		return nil, apperror.InvalidTransition(string(previous), string(in.Status))
	}

	if err := s.businesses.UpdateStatus(business.ID, in.Status); err != nil {
		return nil, apperror.Internal(err)
	}
	business.Status = in.Status
	business.UpdatedAt = time.Now()

	entry, err := s.recorder.Record(actor, models.ActionBusinessStatusChange, models.TargetBusiness, idString(business.ID), map[string]any{
		"previousStatus": string(previous),
		"newStatus":      string(in.Status),
		"reason":         in.Reason,
		"notify":         in.Notify,
	})
	if err != nil {
		log.Errorf("[Lifecycle] audit write failed for business %d (%s -> %s): %v", business.ID, previous, in.Status, err)
		return nil, apperror.Internal(err)
	}

	prom.StatusTransitions.WithLabelValues(string(previous), string(in.Status)).Inc()
	log.Infof("[Lifecycle] business %d status %s -> %s by user %d", business.ID, previous, in.Status, actor.UserID)

	events.PublishBestEffort(ctx, s.publisher, events.SubjectBusinessStatusChanged, map[string]any{
		"business_id":     business.ID,
		"previous_status": string(previous),
		"status":          string(in.Status),
		"reason":          in.Reason,
	})

	result := &SetStatusResult{Business: business, Success: true, AuditEntry: entry}
	if in.Notify {
		result.NotificationQueued = s.notifyOwner(ctx, business, in.Reason)
	}
	return result, nil
}

func (s *Service) notifyOwner(ctx context.Context, business *models.Business, reason string) bool {
	kind, ok := notify.StatusKind(business.Status)
	if !ok {
		return false
	}
	if business.Owner.Email == "" {
		log.Warnf("[Lifecycle] business %d has no owner email, skipping %s notification", business.ID, kind)
		return false
	}

	msg := notify.Message{
		Kind: notify.KindStatusChange,
		StatusChange: &notify.StatusChange{
			BusinessID:   business.ID,
			BusinessName: business.Name,
			OwnerEmail:   business.Owner.Email,
			OwnerName:    business.Owner.Name,
			Status:       business.Status,
			Kind:         kind,
			Reason:       reason,
		},
	}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		log.Errorf("[Lifecycle] %s notification for business %d failed: %v", kind, business.ID, err)
		return false
	}
	return true
}

// ChangePlan sets the plan tier of a business and audits the change
func (s *Service) ChangePlan(ctx context.Context, actor access.Principal, businessID uint, plan models.PlanType) (*models.Business, error) {
	if !plan.Valid() {
		return nil, apperror.Validation("unknown plan", apperror.FieldError{Field: "plan", Message: "must be one of: FREE_TRIAL BASIC PRO VIP"})
	}
	business, err := s.load(businessID)
	if err != nil {
		return nil, err
	}

	previous := business.PlanType
	if err := s.businesses.UpdatePlan(business.ID, plan); err != nil {
		return nil, apperror.Internal(err)
	}
	business.PlanType = plan

	if _, err := s.recorder.Record(actor, models.ActionBusinessPlanChange, models.TargetBusiness, idString(business.ID), map[string]any{
		"previousPlan": string(previous),
		"newPlan":      string(plan),
	}); err != nil {
		return nil, apperror.Internal(err)
	}

	log.Infof("[Lifecycle] business %d plan %s -> %s by user %d", business.ID, previous, plan, actor.UserID)
	return business, nil
}

func (s *Service) load(id uint) (*models.Business, error) {
	business, err := s.businesses.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("business")
		}
		return nil, apperror.Internal(err)
	}
	return business, nil
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
