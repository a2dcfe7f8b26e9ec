package score

import (
	"math"

	"github.com/soonab/Soonab-sub000/config"
)

// WeightFromRaterScore maps a rater's own Bayesian mean to the weight of
// their rating. It interpolates linearly from WeightMin at 1 to WeightMax at
// 5. NaN means the rater has no score yet and is treated as PriorMean.
func WeightFromRaterScore(raterBayesianMean float64, p config.Params) float64 {
	x := raterBayesianMean
	if math.IsNaN(x) {
		x = p.PriorMean
	}
	if math.IsNaN(x) {
		x = minScore
	}
	x = clamp(x, minScore, maxScore)

	t := (x - minScore) / (maxScore - minScore)
	return p.WeightMin + t*(p.WeightMax-p.WeightMin)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
