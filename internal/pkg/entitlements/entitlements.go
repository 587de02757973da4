package entitlements

import (
	"strings"

	"github.com/ManuelReschke/BizFox/app/models"
)

// Normalize maps free-form plan input to a known tier, falling back to FREE_TRIAL
func Normalize(plan string) models.PlanType {
	p := models.PlanType(strings.ToUpper(strings.TrimSpace(plan)))
	if p.Valid() {
		return p
	}
	return models.PlanFreeTrial
}

// Rank orders plan tiers from FREE_TRIAL (0) to VIP (3).
func Rank(plan models.PlanType) int {
	switch Normalize(string(plan)) {
	case models.PlanVIP:
		return 3
	case models.PlanPro:
		return 2
	case models.PlanBasic:
		return 1
	default:
		return 0
	}
}

// ExpectedResponseTime is the advisory lead response window shown to customers
func ExpectedResponseTime(plan models.PlanType) string {
	if plan == models.PlanVIP {
		return "4 hours"
	}
	return "24 hours"
}

// Plan sets used to gate owner features
var (
	OwnerResponsePlans = []models.PlanType{models.PlanBasic, models.PlanPro, models.PlanVIP}
	AnalyticsPlans     = []models.PlanType{models.PlanPro, models.PlanVIP}
)

// Includes reports whether plan is one of plans
func Includes(plans []models.PlanType, plan models.PlanType) bool {
	for _, p := range plans {
		if p == plan {
			return true
		}
	}
	return false
}
