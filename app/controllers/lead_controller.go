package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizFox/internal/pkg/leads"
	"github.com/ManuelReschke/BizFox/internal/pkg/reviews"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

// LeadController handles inquiry intake and the owner lead inbox
type LeadController struct {
	businesses repository.BusinessRepository
	leads      *leads.Service
	reviews    *reviews.Service
	engine     *access.Engine
}

func NewLeadController(repos *repository.Repositories, ls *leads.Service, rs *reviews.Service, engine *access.Engine) *LeadController {
	return &LeadController{businesses: repos.Business, leads: ls, reviews: rs, engine: engine}
}

// HandleSubmit stores a customer inquiry
func (lc *LeadController) HandleSubmit(c *fiber.Ctx) error {
	var in leads.SubmitInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	result, err := lc.leads.Submit(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleList returns a page of leads of one business
func (lc *LeadController) HandleList(c *fiber.Ctx) error {
	businessID, err := paramID(c, "businessId")
	if err != nil {
		return respondError(c, err)
	}
	page, limit, offset := pagination(c)

	filter := repository.LeadFilter{
		Status:   models.LeadStatus(strings.ToUpper(c.Query("status"))),
		Priority: models.LeadPriority(strings.ToUpper(c.Query("priority"))),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return respondError(c, apperror.Validation("unknown status", apperror.FieldError{Field: "status", Message: "is not a known lead status"}))
	}

	items, total, err := lc.leads.List(c.UserContext(), usercontext.GetPrincipal(c), businessID, filter, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// HandleGet reads one lead and marks it viewed
func (lc *LeadController) HandleGet(c *fiber.Ctx) error {
	businessID, leadID, err := leadParams(c)
	if err != nil {
		return respondError(c, err)
	}
	lead, err := lc.leads.Get(c.UserContext(), usercontext.GetPrincipal(c), businessID, leadID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"lead": lead})
}

type advanceLeadRequest struct {
	Status models.LeadStatus `json:"status"`
}

// HandleAdvance moves a lead to a new status
func (lc *LeadController) HandleAdvance(c *fiber.Ctx) error {
	businessID, leadID, err := leadParams(c)
	if err != nil {
		return respondError(c, err)
	}
	var req advanceLeadRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	lead, err := lc.leads.Advance(c.UserContext(), usercontext.GetPrincipal(c), businessID, leadID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"lead": lead})
}

// HandleAnalytics returns lead counts and the rating summary for PRO and VIP owners
func (lc *LeadController) HandleAnalytics(c *fiber.Ctx) error {
	businessID, err := paramID(c, "businessId")
	if err != nil {
		return respondError(c, err)
	}
	business, err := lc.businesses.GetByID(businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperror.NotFound("business"))
		}
		return respondError(c, apperror.Internal(err))
	}
	if err := lc.engine.AuthorizeBusinessAccess(usercontext.GetPrincipal(c), business, entitlements.AnalyticsPlans...).Err(); err != nil {
		return respondError(c, err)
	}

	counts, err := lc.leads.Counts(business.ID)
	if err != nil {
		return respondError(c, err)
	}
	summary, err := lc.reviews.Summary(business.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"business_id": business.ID,
		"leads":       counts,
		"rating":      summary,
		"view_count":  business.ViewCount,
	})
}

func leadParams(c *fiber.Ctx) (businessID, leadID uint, err error) {
	if businessID, err = paramID(c, "businessId"); err != nil {
		return 0, 0, err
	}
	if leadID, err = paramID(c, "leadId"); err != nil {
		return 0, 0, err
	}
	return businessID, leadID, nil
}
