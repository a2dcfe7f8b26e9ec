package schema

type Tier string

const (
	TierAPlus Tier = "A+"
	TierA     Tier = "A"
	TierB     Tier = "B"
	TierC     Tier = "C"
)

// Quota is derived from a Bayesian mean at read time and never stored.
type Quota struct {
	Tier           Tier `json:"tier"`
	PostsPerDay    int  `json:"posts_per_day"`
	RepliesPerDay  int  `json:"replies_per_day"`
	PerThreadDaily int  `json:"per_thread_daily"`
}
