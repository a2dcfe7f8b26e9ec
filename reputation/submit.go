package reputation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/score"
	"github.com/soonab/Soonab-sub000/store"
)

type RatingResult struct {
	OK           bool    `json:"ok"`
	BayesianMean float64 `json:"bayesian_mean"`
	ScorePercent float64 `json:"score_percent"`
	// Locked is set when a concurrent submission of the same rating won the
	// race; the returned score is the current one.
	Locked bool       `json:"locked,omitempty"`
	Score  *ScoreView `json:"score"`
}

// SubmitRating validates and gates a rating, then writes it together with
// the recomputed score of its target in one transaction. The brigade
// detector runs after the commit and never fails the submission.
func (e *Engine) SubmitRating(ctx context.Context, req RatingRequest) (*RatingResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := e.CanSubmitRating(ctx, req); err != nil {
		return nil, err
	}

	p := e.Params()
	now := e.clock()
	subject := req.Subject()

	var updated schema.Score
	err := e.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Store) error {
		rating := &schema.Rating{
			Surface:   req.Surface,
			Rater:     req.Rater.Key(),
			Target:    subject,
			Value:     req.Value,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := tx.UpsertRating(ctx, rating); err != nil {
			return err
		}
		// one row per submission; the ledger above keeps only the latest
		err := tx.AddActivity(ctx, schema.Activity{
			ID:        uuid.New().String(),
			Author:    rating.Rater,
			Kind:      schema.ActivityKindRating,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		s, err := e.recompute(ctx, tx, req.Surface, subject, p, now)
		if err != nil {
			return err
		}
		updated = s
		return nil
	})

	if errors.Is(err, store.ErrDuplicateRating) {
		logger(log.Fields{
			"rater":  req.Rater.Key(),
			"target": subject,
		}).Info("rating lost the uniqueness race")

		view, err := e.ReadScore(ctx, req.Surface, subject)
		if err != nil {
			return nil, err
		}
		return &RatingResult{
			OK:           true,
			BayesianMean: view.BayesianMean,
			ScorePercent: view.ScorePercent,
			Locked:       true,
			Score:        view,
		}, nil
	}
	if err != nil {
		logger(log.Fields{
			"rater":  req.Rater.Key(),
			"target": subject,
			"error":  err,
		}).Error("submit rating")
		return nil, fmt.Errorf("submit rating: %w", err)
	}

	if _, err := e.MaybeFlagBrigade(ctx, req.Surface, subject); err != nil {
		logger(log.Fields{
			"target": subject,
			"error":  err,
		}).Warn("brigade check failed")
	}

	return &RatingResult{
		OK:           true,
		BayesianMean: updated.BayesianMean,
		ScorePercent: score.Percent(updated.BayesianMean),
		Score:        newScoreView(updated),
	}, nil
}
