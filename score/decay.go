package score

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// RecencyFactor discounts a rating by its age with the given half-life.
// A half-life <= 0 disables decay. Timestamps in the future count as fresh.
func RecencyFactor(ratedAt, now time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 || math.IsNaN(halfLifeDays) {
		return 1
	}

	age := now.Sub(ratedAt)
	if age <= 0 {
		return 1
	}

	ageDays := float64(age) / float64(day)
	return math.Pow(0.5, ageDays/halfLifeDays)
}
