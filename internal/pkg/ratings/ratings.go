package ratings

import (
	"math"

	"github.com/ManuelReschke/BizFox/app/models"
)

// Summary aggregates the visible reviews of one business
type Summary struct {
	Average      float64     `json:"average"`
	Count        int         `json:"count"`
	Distribution map[int]int `json:"distribution"`
}

// ComputeSummary ignores hidden reviews. The average is rounded to one decimal
// and every bucket from 1 to 5 is present, so callers never see missing keys.
// Ratings outside 1..5 are skipped.
func ComputeSummary(reviews []models.Review) Summary {
	summary := Summary{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}

	total := 0
	for _, r := range reviews {
		if r.IsHidden || r.Rating < 1 || r.Rating > 5 {
			continue
		}
		summary.Distribution[r.Rating]++
		summary.Count++
		total += r.Rating
	}

	if summary.Count > 0 {
		avg := float64(total) / float64(summary.Count)
		summary.Average = math.Round(avg*10) / 10
	}
	return summary
}
