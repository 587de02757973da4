package leads

import (
	"strings"

	"github.com/ManuelReschke/BizFox/app/models"
)

// UrgentKeywords force URGENT priority when found anywhere in a message, case-insensitively
var UrgentKeywords = []string{"urgent", "asap", "immediately", "emergency", "rush"}

// ComputePriority starts at MEDIUM, raises VIP businesses to HIGH, and lets an
// urgent keyword override both.
func ComputePriority(plan models.PlanType, message string) models.LeadPriority {
	priority := models.LeadPriorityMedium

	switch plan {
	case models.PlanVIP:
		priority = models.LeadPriorityHigh
	case models.PlanPro:
		priority = models.LeadPriorityMedium
	}

	lower := strings.ToLower(message)
	for _, kw := range UrgentKeywords {
		if strings.Contains(lower, kw) {
			return models.LeadPriorityUrgent
		}
	}
	return priority
}
