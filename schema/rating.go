package schema

import "time"

const (
	RatingCollection = "ratings"
	ScoreCollection  = "scores"
)

type RatingSurface string

const (
	// RatingSurfacePeer ratings target identities and feed reputation.
	RatingSurfacePeer RatingSurface = "peer"
	// RatingSurfacePost ratings target single posts.
	RatingSurfacePost RatingSurface = "post"
)

func (s RatingSurface) Valid() bool {
	return s == RatingSurfacePeer || s == RatingSurfacePost
}

// Weighted reports whether ratings on this surface are weighted by the
// rater's reputation and decayed by age.
func (s RatingSurface) Weighted() bool {
	return s == RatingSurfacePeer
}

const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// Rating is unique per (surface, rater, target). A repeated rating replaces
// Value and UpdatedAt.
type Rating struct {
	ID        string        `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Surface   RatingSurface `json:"surface" bson:"surface" gorm:"type:varchar(16);not null;uniqueIndex:idx_rating_pair,priority:1;index:idx_rating_target,priority:1"`
	Rater     string        `json:"rater" bson:"rater" gorm:"type:varchar(191);not null;uniqueIndex:idx_rating_pair,priority:2;index:idx_rating_rater_time,priority:1"`
	Target    string        `json:"target" bson:"target" gorm:"type:varchar(191);not null;uniqueIndex:idx_rating_pair,priority:3;index:idx_rating_target,priority:2"`
	Value     int           `json:"value" bson:"value" gorm:"not null"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at" gorm:"not null"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at" gorm:"not null;index:idx_rating_rater_time,priority:2;index:idx_rating_target,priority:3"`
}

func (Rating) TableName() string { return RatingCollection }

// Score is the cached aggregate of every rating a target received on one
// surface. It is fully derived and may be recomputed at any time.
type Score struct {
	Surface      RatingSurface `json:"surface" bson:"surface" gorm:"primaryKey;type:varchar(16)"`
	Target       string        `json:"target" bson:"target" gorm:"primaryKey;type:varchar(191)"`
	Count        int           `json:"count" bson:"count"`
	Sum          float64       `json:"sum" bson:"sum"`
	Mean         float64       `json:"mean" bson:"mean"`
	BayesianMean float64       `json:"bayesian_mean" bson:"bayesian_mean"`
	UpdatedAt    time.Time     `json:"updated_at" bson:"updated_at"`
}

func (Score) TableName() string { return ScoreCollection }

// Subject identifies one rated thing.
type Subject struct {
	Surface RatingSurface `json:"surface" bson:"surface"`
	Target  string        `json:"target" bson:"target"`
}
