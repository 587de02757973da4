// Package reviews handles review submission, moderation and owner responses.
package reviews

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
	"github.com/ManuelReschke/BizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizFox/internal/pkg/events"
	"github.com/ManuelReschke/BizFox/internal/pkg/ratings"
)

type Service struct {
	businesses repository.BusinessRepository
	reviews    repository.ReviewRepository
	engine     *access.Engine
	recorder   *audit.Recorder
	publisher  events.Publisher
	validate   *validator.Validate
}

func NewService(repos *repository.Repositories, engine *access.Engine, recorder *audit.Recorder, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		businesses: repos.Business,
		reviews:    repos.Review,
		engine:     engine,
		recorder:   recorder,
		publisher:  publisher,
		validate:   apperror.NewValidator(),
	}
}

// SubmitInput is a new review. Anonymous callers may submit.
type SubmitInput struct {
	BusinessID uint   `json:"businessId" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Title      string `json:"title" validate:"max=200"`
	Content    string `json:"content" validate:"required,min=3,max=5000"`
	AuthorName string `json:"authorName" validate:"max=150"`
}

// Submit stores a review for an ACTIVE business
func (s *Service) Submit(ctx context.Context, p access.Principal, in SubmitInput) (*models.Review, error) {
	in.Content = strings.TrimSpace(in.Content)
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

	authorName := strings.TrimSpace(in.AuthorName)
	if authorName == "" && p.Authenticated {
		authorName = p.Name
	}

	review := &models.Review{
		BusinessID: business.ID,
		AuthorID:   p.IDPtr(),
		AuthorName: authorName,
		Rating:     in.Rating,
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
	}
	if err := s.reviews.Create(review); err != nil {
		return nil, apperror.Internal(err)
	}

	events.PublishBestEffort(ctx, s.publisher, events.SubjectReviewCreated, map[string]any{
		"review_id":   review.ID,
		"business_id": business.ID,
		"rating":      review.Rating,
	})
	return review, nil
}

// Summary aggregates the visible reviews of a business
func (s *Service) Summary(businessID uint) (ratings.Summary, error) {
	list, err := s.reviews.ListAllForBusiness(businessID, false)
	if err != nil {
		return ratings.Summary{}, apperror.Internal(err)
	}
	return ratings.ComputeSummary(list), nil
}

// ListVisible returns a page of reviews not hidden by moderation
func (s *Service) ListVisible(businessID uint, offset, limit int) ([]models.Review, error) {
	list, err := s.reviews.ListForBusiness(businessID, false, offset, limit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return list, nil
}

// SetHidden hides or re-shows a review and audits the moderation action
func (s *Service) SetHidden(ctx context.Context, actor access.Principal, reviewID uint, hidden bool) (*models.Review, error) {
	review, err := s.load(reviewID)
	if err != nil {
		return nil, err
	}

	if err := s.reviews.SetHidden(review.ID, hidden); err != nil {
		return nil, apperror.Internal(err)
	}
	review.IsHidden = hidden

	action := models.ActionReviewShown
	if hidden {
		action = models.ActionReviewHidden
	}
	if _, err := s.recorder.Record(actor, action, models.TargetReview, strconv.FormatUint(uint64(review.ID), 10), map[string]any{
		"businessId": review.BusinessID,
		"rating":     review.Rating,
	}); err != nil {
		return nil, apperror.Internal(err)
	}

	log.Infof("[Reviews] review %d %s by user %d", review.ID, strings.ToLower(action), actor.UserID)
	return review, nil
}

// Respond attaches or replaces the owner's public response. The caller must
// own the business and be on a plan that includes responses.
func (s *Service) Respond(ctx context.Context, p access.Principal, reviewID uint, content string) (*models.OwnerResponse, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < 2 || n > 3000 {
		return nil, apperror.Validation("invalid response", apperror.FieldError{Field: "content", Message: "must be between 2 and 3000 characters"})
	}

	review, err := s.load(reviewID)
	if err != nil {
		return nil, err
	}
	business, err := s.businesses.GetByID(review.BusinessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("business")
		}
		return nil, apperror.Internal(err)
	}
	if err := s.engine.AuthorizeBusinessAccess(p, business, entitlements.OwnerResponsePlans...).Err(); err != nil {
		return nil, err
	}

	response := &models.OwnerResponse{
		ReviewID:    review.ID,
		ResponderID: p.UserID,
		Content:     content,
	}
	if err := s.reviews.SaveResponse(response); err != nil {
		return nil, apperror.Internal(err)
	}
	return response, nil
}

func (s *Service) load(id uint) (*models.Review, error) {
	review, err := s.reviews.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("review")
		}
		return nil, apperror.Internal(err)
	}
	return review, nil
}
