package store

import (
	"context"
	"fmt"
	"time"

	"github.com/soonab/Soonab-sub000/schema"
)

const defaultTimeout = 10 * time.Second

var (
	ErrDuplicateRating = fmt.Errorf("rating already exists")
	ErrRatingNotFound  = fmt.Errorf("rating not found")
	ErrUnknownDriver   = fmt.Errorf("unknown store driver")
	ErrNestedTx        = fmt.Errorf("transaction already in progress")
)

// Ratings is the append-or-overwrite ledger of ratings. Uniqueness of
// (surface, rater, target) is enforced by the backing index.
type Ratings interface {
	// UpsertRating inserts r or overwrites Value and UpdatedAt of the existing
	// rating of the same (surface, rater, target). r.ID and r.CreatedAt are
	// filled from the stored row. Losing an insert race returns
	// ErrDuplicateRating.
	UpsertRating(ctx context.Context, r *schema.Rating) (bool, error)
	GetRating(ctx context.Context, surface schema.RatingSurface, rater, target string) (*schema.Rating, error)
	ListRatingsByTarget(ctx context.Context, surface schema.RatingSurface, target string) ([]schema.Rating, error)
	ListRatingsByRater(ctx context.Context, rater string) ([]schema.Rating, error)
	DistinctRatersSince(ctx context.Context, surface schema.RatingSurface, target string, since time.Time) ([]string, error)
	RekeyRating(ctx context.Context, id, rater, target string) error
	DeleteRating(ctx context.Context, id string) error
	DeleteRatingsByTarget(ctx context.Context, surface schema.RatingSurface, target string) (int64, error)
	ListSubjects(ctx context.Context) ([]schema.Subject, error)
}

// Scores is the derived cache of aggregates.
type Scores interface {
	GetScore(ctx context.Context, surface schema.RatingSurface, target string) (*schema.Score, error)
	GetScores(ctx context.Context, surface schema.RatingSurface, targets []string) (map[string]schema.Score, error)
	UpsertScore(ctx context.Context, score schema.Score) error
	DeleteScore(ctx context.Context, surface schema.RatingSurface, target string) error
}

type ScoreHistory interface {
	AddScoreRecord(ctx context.Context, owner string, surface schema.RatingSurface, score float64, ts int64) error
	GetScoreAverage(ctx context.Context, owner string, surface schema.RatingSurface, start, end int64) (float64, error)
}

// Activities is the per-action log behind quotas, the hourly rating cap and
// the interaction requirement. Rows are never collapsed.
type Activities interface {
	AddActivity(ctx context.Context, a schema.Activity) error
	// GetActivity returns nil without error when id is unknown.
	GetActivity(ctx context.Context, id string) (*schema.Activity, error)
	// ActivityTimesSince lists creation times after since, oldest first.
	ActivityTimesSince(ctx context.Context, author string, kind schema.ActivityKind, since time.Time) ([]time.Time, error)
	// CountActivitySince counts activity of one kind by author; an empty
	// threadID counts every thread.
	CountActivitySince(ctx context.Context, author string, kind schema.ActivityKind, threadID string, since time.Time) (int, error)
	// HasInteractionSince reports whether author replied to content of
	// parentAuthor since the given time. Replies to oneself never count.
	HasInteractionSince(ctx context.Context, author, parentAuthor string, since time.Time) (bool, error)
	ReassignActivities(ctx context.Context, from, to string) error
}

type BrigadeFlags interface {
	AddBrigadeFlag(ctx context.Context, flag schema.BrigadeFlag) error
	// ListBrigadeFlags returns the newest flags first. An empty target
	// lists flags of every target.
	ListBrigadeFlags(ctx context.Context, surface schema.RatingSurface, target string, limit int) ([]schema.BrigadeFlag, error)
}

type Store interface {
	Ratings
	Scores
	ScoreHistory
	Activities
	BrigadeFlags

	// RunInTransaction runs fn against a Store bound to a single
	// transaction. Any error returned by fn rolls everything back.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close(ctx context.Context) error
}

// Open connects the store selected by driver: mongo, postgres or sqlite.
func Open(ctx context.Context, driver, dsn, database string) (Store, error) {
	switch driver {
	case "mongo", "mongodb":
		return OpenMongoStore(ctx, dsn, database)
	case "postgres", "sqlite":
		return OpenGormStore(driver, dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func dateOf(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}
