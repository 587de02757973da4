package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
	"github.com/ManuelReschke/BizFox/internal/pkg/lifecycle"
	"github.com/ManuelReschke/BizFox/internal/pkg/reviews"
	"github.com/ManuelReschke/BizFox/internal/pkg/slug"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

// ViewCounter buffers profile views. counter.Counter satisfies it.
type ViewCounter interface {
	AddBusinessView(ctx context.Context, businessID uint) error
}

// BusinessController serves public listings, the owner dashboard and admin moderation
type BusinessController struct {
	businesses repository.BusinessRepository
	categories repository.CategoryRepository
	lifecycle  *lifecycle.Service
	reviews    *reviews.Service
	recorder   *audit.Recorder
	views      ViewCounter
}

func NewBusinessController(repos *repository.Repositories, lc *lifecycle.Service, rs *reviews.Service, recorder *audit.Recorder, views ViewCounter) *BusinessController {
	return &BusinessController{
		businesses: repos.Business,
		categories: repos.Category,
		lifecycle:  lc,
		reviews:    rs,
		recorder:   recorder,
		views:      views,
	}
}

// HandleList returns ACTIVE businesses filtered by q, category slug and city
func (bc *BusinessController) HandleList(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	filter := repository.BusinessFilter{
		Status: models.BusinessStatusActive,
		Query:  strings.TrimSpace(c.Query("q")),
		City:   strings.TrimSpace(c.Query("city")),
	}
	if categorySlug := c.Query("category"); categorySlug != "" {
		category, err := bc.categories.GetBySlug(categorySlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(listResponse{Items: []models.Business{}, Page: page, Limit: limit})
			}
			return respondError(c, apperror.Internal(err))
		}
		filter.CategoryID = category.ID
	}

	items, total, err := bc.businesses.List(filter, offset, limit)
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(listResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// loadPublic returns the ACTIVE business with the given slug. Anything else is not found.
func (bc *BusinessController) loadPublic(slugParam string) (*models.Business, error) {
	business, err := bc.businesses.GetBySlug(slugParam)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("business")
		}
		return nil, apperror.Internal(err)
	}
	if !business.IsPublic() {
		return nil, apperror.NotFound("business")
	}
	return business, nil
}

// HandleShow returns one ACTIVE business with its rating summary and counts the view
func (bc *BusinessController) HandleShow(c *fiber.Ctx) error {
	business, err := bc.loadPublic(c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	summary, err := bc.reviews.Summary(business.ID)
	if err != nil {
		return respondError(c, err)
	}

	if bc.views != nil {
		if err := bc.views.AddBusinessView(c.UserContext(), business.ID); err != nil {
			log.Warnf("[Business] view count for %d not recorded: %v", business.ID, err)
		}
	}

	return c.JSON(fiber.Map{"business": business, "rating": summary})
}

// HandleCategories lists all categories
func (bc *BusinessController) HandleCategories(c *fiber.Ctx) error {
	list, err := bc.categories.List()
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"items": list})
}

// HandleOwnerList returns every business owned by the caller regardless of status
func (bc *BusinessController) HandleOwnerList(c *fiber.Ctx) error {
	p := usercontext.GetPrincipal(c)
	list, err := bc.businesses.ListByOwner(p.UserID)
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"items": list})
}

// HandleCreate lists a new business for the caller
func (bc *BusinessController) HandleCreate(c *fiber.Ctx) error {
	var in lifecycle.CreateInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	business, err := bc.lifecycle.Create(c.UserContext(), usercontext.GetPrincipal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"business": business})
}

// HandleSubmit moves a draft to moderation
func (bc *BusinessController) HandleSubmit(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	business, err := bc.lifecycle.SubmitDraft(c.UserContext(), usercontext.GetPrincipal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"business": business})
}

// HandleAdminList returns businesses of any status, optionally filtered by status
func (bc *BusinessController) HandleAdminList(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	filter := repository.BusinessFilter{
		Status: models.BusinessStatus(strings.ToUpper(c.Query("status"))),
		Query:  strings.TrimSpace(c.Query("q")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return respondError(c, apperror.Validation("unknown status", apperror.FieldError{Field: "status", Message: "is not a known business status"}))
	}

	items, total, err := bc.businesses.List(filter, offset, limit)
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(listResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// HandleSetStatus applies an admin status change
func (bc *BusinessController) HandleSetStatus(c *fiber.Ctx) error {
	var in lifecycle.SetStatusInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	result, err := bc.lifecycle.SetStatus(c.UserContext(), usercontext.GetPrincipal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

type changePlanRequest struct {
	BusinessID uint            `json:"businessId"`
	Plan       models.PlanType `json:"plan"`
}

// HandleChangePlan sets the plan tier of a business
func (bc *BusinessController) HandleChangePlan(c *fiber.Ctx) error {
	var req changePlanRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.BusinessID == 0 {
		return respondError(c, apperror.Validation("businessId is required", apperror.FieldError{Field: "business_id", Message: "is required"}))
	}
	business, err := bc.lifecycle.ChangePlan(c.UserContext(), usercontext.GetPrincipal(c), req.BusinessID, req.Plan)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"business": business, "success": true})
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// HandleCreateCategory adds a directory category
func (bc *BusinessController) HandleCreateCategory(c *fiber.Ctx) error {
	var req createCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        strings.TrimSpace(req.Slug),
		Description: strings.TrimSpace(req.Description),
	}
	if category.Slug == "" {
		category.Slug = slug.Make(category.Name)
	}
	if err := apperror.NewValidator().Struct(category); err != nil {
		return respondError(c, apperror.FromValidator(err))
	}
	if !slug.Valid(category.Slug) {
		return respondError(c, apperror.Validation("invalid slug", apperror.FieldError{
			Field: "slug", Message: "must contain lowercase letters, digits and single hyphens",
		}))
	}
	taken, err := bc.categories.SlugExists(category.Slug)
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	if taken {
		return respondError(c, apperror.New(apperror.CodeSlugTaken, "slug "+category.Slug+" is already taken"))
	}

	if err := bc.categories.Create(category); err != nil {
		return respondError(c, apperror.Internal(err))
	}
	if _, err := bc.recorder.Record(usercontext.GetPrincipal(c), models.ActionCategoryCreate, models.TargetCategory, category.Slug, map[string]any{
		"name": category.Name,
	}); err != nil {
		return respondError(c, apperror.Internal(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"category": category})
}
