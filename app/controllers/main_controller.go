package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizFox/internal/pkg/env"
	"github.com/ManuelReschke/BizFox/internal/pkg/flash"
	"github.com/ManuelReschke/BizFox/internal/pkg/reviews"
	"github.com/ManuelReschke/BizFox/internal/pkg/settings"
	"github.com/ManuelReschke/BizFox/internal/pkg/statistics"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/BizFox/internal/pkg/viewmodel"
)

const homePageSize = 12

// MainController renders the public HTML pages
type MainController struct {
	businesses *BusinessController
	reviews    *reviews.Service
	settings   *settings.Service
	stats      *statistics.Service
}

func NewMainController(businesses *BusinessController, rs *reviews.Service, ss *settings.Service, stats *statistics.Service) *MainController {
	return &MainController{businesses: businesses, reviews: rs, settings: ss, stats: stats}
}

// layout returns the values every page template expects
func (mc *MainController) layout(c *fiber.Ctx, title string) fiber.Map {
	siteTitle := "BizFox"
	if v, err := mc.settings.Get(settings.KeySiteTitle); err == nil {
		if s, ok := v.(settings.StringValue); ok && s != "" {
			siteTitle = string(s)
		}
	}
	return fiber.Map{
		"Title":     title,
		"SiteTitle": siteTitle,
		"User":      usercontext.GetUserContext(c),
		"Flash":     flash.Get(c),
		"IsDev":     env.IsDev(),
		"CSRF":      c.Locals("csrf"),
	}
}

// HandleHome renders the landing page with the newest ACTIVE listings
func (mc *MainController) HandleHome(c *fiber.Ctx) error {
	items, _, err := mc.businesses.businesses.List(repository.BusinessFilter{
		Status: models.BusinessStatusActive,
		Query:  c.Query("q"),
	}, 0, homePageSize)
	if err != nil {
		log.Errorf("[Main] listing businesses failed: %v", err)
		items = nil
	}

	data := mc.layout(c, "Discover local businesses")
	data["Businesses"] = items
	data["Query"] = c.Query("q")
	if stats, err := mc.stats.Public(); err == nil {
		data["Stats"] = stats
	} else {
		log.Warnf("[Main] public stats unavailable: %v", err)
	}
	return c.Render("index", data, "layouts/main")
}

// HandleBusinessPage renders the public profile of an ACTIVE business
func (mc *MainController) HandleBusinessPage(c *fiber.Ctx) error {
	business, err := mc.businesses.loadPublic(c.Params("slug"))
	if err != nil {
		if apperror.IsCode(err, apperror.CodeNotFound) {
			return mc.HandleNotFound(c)
		}
		return err
	}

	summary, err := mc.reviews.Summary(business.ID)
	if err != nil {
		return err
	}
	list, err := mc.reviews.ListVisible(business.ID, 0, 20)
	if err != nil {
		return err
	}
	if mc.businesses.views != nil {
		if err := mc.businesses.views.AddBusinessView(c.UserContext(), business.ID); err != nil {
			log.Warnf("[Main] view count for %d not recorded: %v", business.ID, err)
		}
	}

	data := mc.layout(c, business.Name)
	data["OG"] = viewmodel.BusinessOpenGraph(business, publicBaseURL(c), data["SiteTitle"].(string))
	data["Business"] = business
	data["Rating"] = summary
	data["Reviews"] = list
	return c.Render("business", data, "layouts/main")
}

type pricingTier struct {
	Plan           models.PlanType
	Rank           int
	ResponseTime   string
	OwnerResponses bool
	Analytics      bool
}

// HandlePricing renders the plan comparison. Plan errors link here.
func (mc *MainController) HandlePricing(c *fiber.Ctx) error {
	plans := []models.PlanType{models.PlanFreeTrial, models.PlanBasic, models.PlanPro, models.PlanVIP}
	tiers := make([]pricingTier, 0, len(plans))
	for _, p := range plans {
		tiers = append(tiers, pricingTier{
			Plan:           p,
			Rank:           entitlements.Rank(p),
			ResponseTime:   entitlements.ExpectedResponseTime(p),
			OwnerResponses: entitlements.Includes(entitlements.OwnerResponsePlans, p),
			Analytics:      entitlements.Includes(entitlements.AnalyticsPlans, p),
		})
	}

	data := mc.layout(c, "Pricing")
	data["Tiers"] = tiers
	return c.Render("pricing", data, "layouts/main")
}

// publicBaseURL prefers the configured public domain over the request origin
func publicBaseURL(c *fiber.Ctx) string {
	if domain := env.GetEnv("PUBLIC_DOMAIN", ""); domain != "" {
		return domain
	}
	return c.BaseURL()
}

// HandleNotFound renders the 404 page, or a JSON error under /api
func (mc *MainController) HandleNotFound(c *fiber.Ctx) error {
	if strings.HasPrefix(c.Path(), "/api/") {
		return respondError(c, apperror.NotFound("route"))
	}
	return c.Status(fiber.StatusNotFound).Render("404", mc.layout(c, "Not found"), "layouts/main")
}

// HandlePublicStats returns the cached directory numbers
func (mc *MainController) HandlePublicStats(c *fiber.Ctx) error {
	stats, err := mc.stats.Public()
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(stats)
}
