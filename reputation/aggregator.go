package reputation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/soonab/Soonab-sub000/config"
	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/score"
	"github.com/soonab/Soonab-sub000/store"
)

// ScoreView is the public shape of a cached score.
type ScoreView struct {
	Surface      schema.RatingSurface `json:"surface"`
	Target       string               `json:"target"`
	Count        int                  `json:"count"`
	Sum          float64              `json:"sum"`
	Mean         float64              `json:"mean"`
	BayesianMean float64              `json:"bayesian_mean"`
	ScorePercent float64              `json:"score_percent"`
	Tier         schema.Tier          `json:"tier"`
}

func newScoreView(s schema.Score) *ScoreView {
	return &ScoreView{
		Surface:      s.Surface,
		Target:       s.Target,
		Count:        s.Count,
		Sum:          s.Sum,
		Mean:         s.Mean,
		BayesianMean: s.BayesianMean,
		ScorePercent: score.Percent(s.BayesianMean),
		Tier:         score.QuotasForScore(s.BayesianMean).Tier,
	}
}

// Recompute rebuilds the cached score of a target from its ratings.
func (e *Engine) Recompute(ctx context.Context, surface schema.RatingSurface, target string) (*schema.Score, error) {
	if !surface.Valid() {
		return nil, invalid(RuleInvalidSurface, "unknown rating surface %q", surface)
	}

	p := e.Params()
	now := e.clock()

	var result schema.Score
	err := e.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Store) error {
		s, err := e.recompute(ctx, tx, surface, target, p, now)
		result = s
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recompute %s %s: %w", surface, target, err)
	}
	return &result, nil
}

// recompute runs on s, which is the transaction of the caller.
func (e *Engine) recompute(ctx context.Context, s store.Store, surface schema.RatingSurface, target string, p config.Params, now time.Time) (schema.Score, error) {
	ratings, err := s.ListRatingsByTarget(ctx, surface, target)
	if err != nil {
		return schema.Score{}, err
	}

	raterScores := map[string]schema.Score{}
	if surface.Weighted() && len(ratings) > 0 {
		raters := make([]string, 0, len(ratings))
		for _, r := range ratings {
			raters = append(raters, r.Rater)
		}
		raterScores, err = s.GetScores(ctx, schema.RatingSurfacePeer, raters)
		if err != nil {
			return schema.Score{}, err
		}
	}

	samples := make([]score.Sample, 0, len(ratings))
	for _, r := range ratings {
		samples = append(samples, score.Sample{
			Value:      r.Value,
			RaterScore: raterScore(raterScores, r.Rater),
			RatedAt:    r.UpdatedAt,
		})
	}

	agg := score.Compute(samples, surface.Weighted(), p, now)
	result := schema.Score{
		Surface:      surface,
		Target:       target,
		Count:        agg.Count,
		Sum:          agg.Sum,
		Mean:         agg.Mean,
		BayesianMean: agg.BayesianMean,
		UpdatedAt:    now,
	}

	if err := s.UpsertScore(ctx, result); err != nil {
		return schema.Score{}, err
	}
	if err := s.AddScoreRecord(ctx, target, surface, result.BayesianMean, now.Unix()); err != nil {
		return schema.Score{}, err
	}
	return result, nil
}

// raterScore is NaN for raters without ratings of their own so the weight
// function falls back to the prior instead of recursing.
func raterScore(scores map[string]schema.Score, rater string) float64 {
	s, ok := scores[rater]
	if !ok || s.Count == 0 {
		return math.NaN()
	}
	return s.BayesianMean
}

// ReadScore returns the cached score, computing it on first read.
func (e *Engine) ReadScore(ctx context.Context, surface schema.RatingSurface, target string) (*ScoreView, error) {
	s, err := e.currentScore(ctx, surface, target)
	if err != nil {
		return nil, err
	}
	return newScoreView(s), nil
}

func (e *Engine) currentScore(ctx context.Context, surface schema.RatingSurface, target string) (schema.Score, error) {
	if err := validateSubject(surface, target); err != nil {
		return schema.Score{}, err
	}

	cached, err := e.store.GetScore(ctx, surface, target)
	if err != nil {
		return schema.Score{}, fmt.Errorf("read score %s %s: %w", surface, target, err)
	}
	if cached == nil {
		created, err := e.Recompute(ctx, surface, target)
		if err != nil {
			return schema.Score{}, err
		}
		return *created, nil
	}

	// a subject without ratings follows the prior as it is retuned
	if cached.Count == 0 {
		cached.BayesianMean = e.Params().PriorMean
	}
	return *cached, nil
}

// ScoreAverage averages the daily score history of a target over [start, end].
func (e *Engine) ScoreAverage(ctx context.Context, surface schema.RatingSurface, target string, start, end time.Time) (float64, error) {
	if err := validateSubject(surface, target); err != nil {
		return 0, err
	}
	if end.Before(start) {
		return 0, invalid(RuleInvalidValue, "history end is before start")
	}
	return e.store.GetScoreAverage(ctx, target, surface, start.Unix(), end.Unix())
}

// RecomputeAll rebuilds every known score. Peer scores go first so post
// scores and later peer scores see fresh rater weights.
func (e *Engine) RecomputeAll(ctx context.Context) (int, error) {
	subjects, err := e.store.ListSubjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subjects: %w", err)
	}

	sort.SliceStable(subjects, func(i, j int) bool {
		return subjects[i].Surface == schema.RatingSurfacePeer && subjects[j].Surface != schema.RatingSurfacePeer
	})

	count := 0
	for _, s := range subjects {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := e.Recompute(ctx, s.Surface, s.Target); err != nil {
			return count, err
		}
		count++
	}

	logger(log.Fields{"subjects": count}).Info("recomputed all scores")
	return count, nil
}
