package score

import (
	"math"
	"time"

	"github.com/soonab/Soonab-sub000/config"
)

const (
	minScore = 1.0
	maxScore = 5.0

	// denominators below epsilon yield the prior
	epsilon = 1e-9
)

// Sample is one rating as seen by the aggregator.
type Sample struct {
	Value int
	// RaterScore is the rater's cached Bayesian mean, NaN when unknown.
	RaterScore float64
	RatedAt    time.Time
}

type Aggregate struct {
	Count        int
	Sum          float64
	Mean         float64
	BayesianMean float64
}

// Compute folds samples into raw and Bayesian aggregates. In weighted mode
// every sample is weighted by its rater's reputation and its recency; in
// unweighted mode every weight is 1.
func Compute(samples []Sample, weighted bool, p config.Params, now time.Time) Aggregate {
	var a Aggregate
	if len(samples) == 0 {
		a.BayesianMean = p.PriorMean
		return a
	}

	weightedSum := float64(0)
	sumOfWeights := float64(0)
	for _, s := range samples {
		a.Count, a.Sum, a.Mean = RunningMean(a.Count, a.Sum, float64(s.Value))

		w := float64(1)
		if weighted {
			w = WeightFromRaterScore(s.RaterScore, p) * RecencyFactor(s.RatedAt, now, p.HalfLifeDays)
		}
		weightedSum += float64(s.Value) * w
		sumOfWeights += w
	}

	denominator := p.PriorWeight + sumOfWeights
	if denominator < epsilon {
		a.BayesianMean = p.PriorMean
		return a
	}
	a.BayesianMean = (p.PriorMean*p.PriorWeight + weightedSum) / denominator
	return a
}

// RunningMean adds one value to a running count and sum.
func RunningMean(count int, sum, value float64) (int, float64, float64) {
	sum = sum + value
	count = count + 1
	average := sum / float64(count)
	return count, sum, average
}

// Percent renders a Bayesian mean on a 0-100 scale.
func Percent(bayesianMean float64) float64 {
	if math.IsNaN(bayesianMean) {
		return 0
	}
	return (bayesianMean / maxScore) * 100
}
