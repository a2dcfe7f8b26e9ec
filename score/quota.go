package score

import "github.com/soonab/Soonab-sub000/schema"

// quotaBands is ordered highest first; thresholds are inclusive.
var quotaBands = []struct {
	threshold float64
	quota     schema.Quota
}{
	{4.5, schema.Quota{Tier: schema.TierAPlus, PostsPerDay: 4, RepliesPerDay: 24, PerThreadDaily: 12}},
	{4.0, schema.Quota{Tier: schema.TierA, PostsPerDay: 3, RepliesPerDay: 18, PerThreadDaily: 9}},
	{3.0, schema.Quota{Tier: schema.TierB, PostsPerDay: 2, RepliesPerDay: 12, PerThreadDaily: 6}},
}

var lowestQuota = schema.Quota{Tier: schema.TierC, PostsPerDay: 1, RepliesPerDay: 6, PerThreadDaily: 3}

// QuotasForScore returns the posting quota for a Bayesian mean.
func QuotasForScore(bayesianMean float64) schema.Quota {
	for _, b := range quotaBands {
		if bayesianMean >= b.threshold {
			return b.quota
		}
	}
	return lowestQuota
}
