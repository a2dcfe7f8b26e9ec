package schema

const (
	ScoreHistoryCollection = "scoreHistory"
)

// ScoreRecord keeps the last Bayesian mean of a subject for each UTC day.
type ScoreRecord struct {
	Owner   string        `bson:"owner" gorm:"primaryKey;type:varchar(191)"`
	Surface RatingSurface `bson:"surface" gorm:"primaryKey;type:varchar(16)"`
	Score   float64       `bson:"score"`
	Date    string        `bson:"date" gorm:"primaryKey;type:varchar(10)"`
	TS      int64         `bson:"ts"`
}

func (ScoreRecord) TableName() string { return ScoreHistoryCollection }
