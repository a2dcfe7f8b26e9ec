package reputation

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/store"
)

type MergeResult struct {
	Moved      int `json:"moved"`
	Dropped    int `json:"dropped"`
	Recomputed int `json:"recomputed"`
}

// MergeIdentity moves the ratings and activity of a claimed session to its
// profile. When both rated the same target the profile's rating is kept,
// and ratings between the two identities are dropped as self-ratings.
func (e *Engine) MergeIdentity(ctx context.Context, session, profile schema.Identity) (*MergeResult, error) {
	if !session.Valid() || session.Kind != schema.IdentityKindSession {
		return nil, invalid(RuleInvalidMerge, "merge source must be a session identity")
	}
	if !profile.Valid() || profile.Kind != schema.IdentityKindProfile {
		return nil, invalid(RuleInvalidMerge, "merge destination must be a profile identity")
	}

	p := e.Params()
	now := e.clock()
	from := session.Key()
	to := profile.Key()

	var result MergeResult
	err := e.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Store) error {
		result = MergeResult{}
		affected := map[schema.Subject]struct{}{
			{Surface: schema.RatingSurfacePeer, Target: to}: {},
		}

		given, err := tx.ListRatingsByRater(ctx, from)
		if err != nil {
			return err
		}
		for _, r := range given {
			affected[schema.Subject{Surface: r.Surface, Target: r.Target}] = struct{}{}

			keep, err := e.keepMerged(ctx, tx, r, r.Surface == schema.RatingSurfacePeer && r.Target == to, r.Surface, to, r.Target)
			if err != nil {
				return err
			}
			if !keep {
				result.Dropped++
				continue
			}
			if err := tx.RekeyRating(ctx, r.ID, to, r.Target); err != nil {
				return err
			}
			result.Moved++
		}

		received, err := tx.ListRatingsByTarget(ctx, schema.RatingSurfacePeer, from)
		if err != nil {
			return err
		}
		for _, r := range received {
			keep, err := e.keepMerged(ctx, tx, r, r.Rater == to, schema.RatingSurfacePeer, r.Rater, to)
			if err != nil {
				return err
			}
			if !keep {
				result.Dropped++
				continue
			}
			if err := tx.RekeyRating(ctx, r.ID, r.Rater, to); err != nil {
				return err
			}
			result.Moved++
		}

		if err := tx.ReassignActivities(ctx, from, to); err != nil {
			return err
		}
		if err := tx.DeleteScore(ctx, schema.RatingSurfacePeer, from); err != nil {
			return err
		}

		for subject := range affected {
			if _, err := e.recompute(ctx, tx, subject.Surface, subject.Target, p, now); err != nil {
				return err
			}
			result.Recomputed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge %s into %s: %w", from, to, err)
	}

	logger(log.Fields{
		"session": from,
		"profile": to,
		"moved":   result.Moved,
		"dropped": result.Dropped,
	}).Info("merged identity")
	return &result, nil
}

// keepMerged deletes r and reports false when it would become a
// self-rating or collides with an existing rating of (rater, target).
func (e *Engine) keepMerged(ctx context.Context, tx store.Store, r schema.Rating, self bool, surface schema.RatingSurface, rater, target string) (bool, error) {
	if !self {
		existing, err := tx.GetRating(ctx, surface, rater, target)
		if err != nil {
			return false, err
		}
		if existing == nil {
			return true, nil
		}
	}
	return false, tx.DeleteRating(ctx, r.ID)
}

// ResetSubject deletes every rating of a subject whose content is gone and
// resets its score to the prior.
func (e *Engine) ResetSubject(ctx context.Context, surface schema.RatingSurface, target string) (int64, error) {
	if err := validateSubject(surface, target); err != nil {
		return 0, err
	}

	p := e.Params()
	now := e.clock()

	var deleted int64
	err := e.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Store) error {
		n, err := tx.DeleteRatingsByTarget(ctx, surface, target)
		if err != nil {
			return err
		}
		deleted = n
		_, err = e.recompute(ctx, tx, surface, target, p, now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reset %s %s: %w", surface, target, err)
	}

	logger(log.Fields{
		"surface": surface,
		"target":  target,
		"deleted": deleted,
	}).Info("subject reset")
	return deleted, nil
}
