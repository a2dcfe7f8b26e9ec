package score

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var aggregateNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestComputeWithoutRatingsIsPrior(t *testing.T) {
	a := Compute(nil, true, testParams, aggregateNow)
	assert.Equal(t, 0, a.Count)
	assert.Equal(t, 0.0, a.Mean)
	assert.Equal(t, testParams.PriorMean, a.BayesianMean)

	p := testParams
	p.PriorMean = 3.7
	assert.Equal(t, 3.7, Compute(nil, false, p, aggregateNow).BayesianMean)
}

func TestComputeSingleWeightedRating(t *testing.T) {
	// a rater at 3.0 sits at the middle of [0.25, 1.25] and weighs 0.75
	samples := []Sample{{Value: 5, RaterScore: 3.0, RatedAt: aggregateNow}}

	a := Compute(samples, true, testParams, aggregateNow)
	assert.Equal(t, 1, a.Count)
	assert.Equal(t, 5.0, a.Sum)
	assert.Equal(t, 5.0, a.Mean)
	assert.InDelta(t, 23.75/5.75, a.BayesianMean, 1e-12)
	assert.InDelta(t, 4.1304, a.BayesianMean, 1e-4)
}

func TestComputeUnknownRaterWeighsAsPrior(t *testing.T) {
	samples := []Sample{{Value: 5, RaterScore: math.NaN(), RatedAt: aggregateNow}}

	a := Compute(samples, true, testParams, aggregateNow)
	assert.InDelta(t, (4.0*5+5*1.0)/(5+1.0), a.BayesianMean, 1e-12)
}

func TestComputeUnweightedIgnoresRaterAndAge(t *testing.T) {
	p := testParams
	p.HalfLifeDays = 1
	samples := []Sample{
		{Value: 1, RaterScore: 1, RatedAt: aggregateNow.AddDate(-1, 0, 0)},
		{Value: 5, RaterScore: 5, RatedAt: aggregateNow},
	}

	a := Compute(samples, false, p, aggregateNow)
	assert.Equal(t, 2, a.Count)
	assert.Equal(t, 3.0, a.Mean)
	assert.InDelta(t, (4.0*5+6)/(5+2.0), a.BayesianMean, 1e-12)
}

func TestComputeDecayDiscountsOldRatings(t *testing.T) {
	p := testParams
	p.HalfLifeDays = 30
	fresh := Compute([]Sample{{Value: 1, RaterScore: 5, RatedAt: aggregateNow}}, true, p, aggregateNow)
	stale := Compute([]Sample{{Value: 1, RaterScore: 5, RatedAt: aggregateNow.AddDate(0, 0, -90)}}, true, p, aggregateNow)

	assert.Less(t, fresh.BayesianMean, stale.BayesianMean)
	assert.Less(t, stale.BayesianMean, p.PriorMean)
}

func TestComputeIsMonotonicInValue(t *testing.T) {
	others := []Sample{
		{Value: 2, RaterScore: 4.5, RatedAt: aggregateNow.AddDate(0, 0, -2)},
		{Value: 4, RaterScore: 1.5, RatedAt: aggregateNow.AddDate(0, 0, -10)},
	}

	previous := math.Inf(-1)
	for v := 1; v <= 5; v++ {
		samples := append([]Sample{{Value: v, RaterScore: 3.3, RatedAt: aggregateNow}}, others...)
		b := Compute(samples, true, testParams, aggregateNow).BayesianMean
		assert.GreaterOrEqual(t, b, previous)
		previous = b
	}
}

func TestComputeStaysWithinBounds(t *testing.T) {
	for _, prior := range []float64{0.5, 1, 3, 4, 5, 6} {
		p := testParams
		p.PriorMean = prior
		for _, v := range []int{1, 5} {
			samples := make([]Sample, 50)
			for i := range samples {
				samples[i] = Sample{Value: v, RaterScore: 5, RatedAt: aggregateNow}
			}
			b := Compute(samples, true, p, aggregateNow).BayesianMean
			assert.GreaterOrEqual(t, b, math.Min(prior, 1))
			assert.LessOrEqual(t, b, math.Max(prior, 5))
		}
	}
}

func TestComputeZeroDenominatorFallsBackToPrior(t *testing.T) {
	p := testParams
	p.PriorWeight = 0
	p.WeightMin = 0
	p.WeightMax = 0

	a := Compute([]Sample{{Value: 1, RaterScore: 2, RatedAt: aggregateNow}}, true, p, aggregateNow)
	assert.Equal(t, 1, a.Count)
	assert.Equal(t, p.PriorMean, a.BayesianMean)
}

func TestRunningMean(t *testing.T) {
	count, sum, average := RunningMean(8, 30, 4)
	assert.Equal(t, 9, count)
	assert.Equal(t, float64(34), sum)
	assert.Equal(t, float64(34)/float64(9), average)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 100.0, Percent(5))
	assert.Equal(t, 80.0, Percent(4))
	assert.Equal(t, 0.0, Percent(math.NaN()))
}
