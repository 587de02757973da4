package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/reviews"
	"github.com/ManuelReschke/BizFox/internal/pkg/settings"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

// CaptchaVerifier checks a captcha response token. hcaptcha.Verifier satisfies it.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) error
}

// ReviewController handles review submission, listing, responses and moderation
type ReviewController struct {
	businesses *BusinessController
	reviews    *reviews.Service
	settings   *settings.Service
	captcha    CaptchaVerifier
}

func NewReviewController(businesses *BusinessController, rs *reviews.Service, ss *settings.Service, captcha CaptchaVerifier) *ReviewController {
	return &ReviewController{businesses: businesses, reviews: rs, settings: ss, captcha: captcha}
}

type submitReviewRequest struct {
	reviews.SubmitInput
	CaptchaToken string `json:"captchaToken"`
}

// HandleSubmit stores a review. Anonymous callers solve a captcha when the setting asks for it.
func (rc *ReviewController) HandleSubmit(c *fiber.Ctx) error {
	var req submitReviewRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	p := usercontext.GetPrincipal(c)
	if !p.Authenticated && rc.settings.Bool(settings.KeyReviewsRequireCaptcha) {
		if rc.captcha == nil {
			log.Error("[Reviews] captcha required but no verifier configured")
			return respondError(c, apperror.Internal(errors.New("captcha verifier missing")))
		}
		if err := rc.captcha.Verify(c.UserContext(), req.CaptchaToken); err != nil {
			log.Infof("[Reviews] captcha rejected: %v", err)
			return respondError(c, apperror.Validation("captcha verification failed",
				apperror.FieldError{Field: "captcha_token", Message: "is invalid"}))
		}
	}

	review, err := rc.reviews.Submit(c.UserContext(), p, req.SubmitInput)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"review": review})
}

// HandleListForBusiness returns the visible reviews of an ACTIVE business plus its summary
func (rc *ReviewController) HandleListForBusiness(c *fiber.Ctx) error {
	business, err := rc.businesses.loadPublic(c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	page, limit, offset := pagination(c)

	items, err := rc.reviews.ListVisible(business.ID, offset, limit)
	if err != nil {
		return respondError(c, err)
	}
	summary, err := rc.reviews.Summary(business.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":   items,
		"summary": summary,
		"total":   int64(summary.Count),
		"page":    page,
		"limit":   limit,
	})
}

type respondRequest struct {
	Content string `json:"content"`
}

// HandleRespond attaches the owner's response to a review
func (rc *ReviewController) HandleRespond(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req respondRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	response, err := rc.reviews.Respond(c.UserContext(), usercontext.GetPrincipal(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"response": response})
}

// HandleHide hides a review from public surfaces
func (rc *ReviewController) HandleHide(c *fiber.Ctx) error {
	return rc.setHidden(c, true)
}

// HandleShow makes a hidden review visible again
func (rc *ReviewController) HandleShow(c *fiber.Ctx) error {
	return rc.setHidden(c, false)
}

func (rc *ReviewController) setHidden(c *fiber.Ctx, hidden bool) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	review, err := rc.reviews.SetHidden(c.UserContext(), usercontext.GetPrincipal(c), id, hidden)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"review": review, "success": true})
}
