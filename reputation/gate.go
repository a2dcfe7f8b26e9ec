package reputation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soonab/Soonab-sub000/schema"
	"github.com/soonab/Soonab-sub000/score"
)

// Decision is the quota applied to a post or reply that passed the gate.
// Used counts the activity of the current UTC day before this action.
type Decision struct {
	Quota        schema.Quota `json:"quota"`
	BayesianMean float64      `json:"bayesian_mean"`
	Used         int          `json:"used"`
	Remaining    int          `json:"remaining"`

	ThreadID        string `json:"thread_id,omitempty"`
	ThreadUsed      int    `json:"thread_used,omitempty"`
	ThreadRemaining int    `json:"thread_remaining,omitempty"`
}

// RatingRequest describes one rating. For the peer surface Target is the
// identity key of the rated identity. For the post surface Target is the
// post id and TargetAuthor, when known, the identity key of its author.
type RatingRequest struct {
	Surface      schema.RatingSurface
	Rater        schema.Identity
	Target       string
	TargetAuthor string
	Value        int
}

// Subject is the stored target key of the request.
func (r RatingRequest) Subject() string {
	if r.Surface == schema.RatingSurfacePost {
		return schema.PostSubject(r.Target)
	}
	return r.Target
}

func (r RatingRequest) validateTarget() error {
	if !r.Rater.Valid() {
		return invalid(RuleInvalidIdentity, "rater identity is missing or malformed")
	}
	if !r.Surface.Valid() {
		return invalid(RuleInvalidSurface, "unknown rating surface %q", r.Surface)
	}

	switch r.Surface {
	case schema.RatingSurfacePeer:
		if _, err := schema.ParseIdentity(r.Target); err != nil {
			return invalid(RuleInvalidTarget, "target %q is not an identity", r.Target)
		}
	case schema.RatingSurfacePost:
		if !validPostID(r.Target) {
			return invalid(RuleInvalidTarget, "post id %q is malformed", r.Target)
		}
	}

	if r.TargetAuthor != "" {
		if _, err := schema.ParseIdentity(r.TargetAuthor); err != nil {
			return invalid(RuleInvalidTarget, "target author %q is not an identity", r.TargetAuthor)
		}
	}
	return nil
}

func validPostID(id string) bool {
	return id != "" && !strings.ContainsAny(id, ": ")
}

// validateSubject checks a stored subject key: an identity key on the peer
// surface, a post subject key on the post surface.
func validateSubject(surface schema.RatingSurface, target string) error {
	if !surface.Valid() {
		return invalid(RuleInvalidSurface, "unknown rating surface %q", surface)
	}

	switch surface {
	case schema.RatingSurfacePeer:
		if _, err := schema.ParseIdentity(target); err != nil {
			return invalid(RuleInvalidTarget, "subject %q is not an identity", target)
		}
	case schema.RatingSurfacePost:
		prefix := schema.PostSubject("")
		if !strings.HasPrefix(target, prefix) || !validPostID(strings.TrimPrefix(target, prefix)) {
			return invalid(RuleInvalidTarget, "subject %q is not a post", target)
		}
	}
	return nil
}

func (r RatingRequest) validate() error {
	if err := r.validateTarget(); err != nil {
		return err
	}
	if r.Value < schema.MinRatingValue || r.Value > schema.MaxRatingValue {
		return invalid(RuleInvalidValue, "rating value must be between %d and %d", schema.MinRatingValue, schema.MaxRatingValue)
	}
	return nil
}

// CanSubmitRating runs every rating check except uniqueness, which the
// store enforces when the rating is written.
func (e *Engine) CanSubmitRating(ctx context.Context, req RatingRequest) error {
	if err := req.validateTarget(); err != nil {
		return err
	}

	rater := req.Rater.Key()
	author, err := e.ratedAuthor(ctx, req)
	if err != nil {
		return err
	}
	if author == rater {
		return forbidden(RuleSelfAction, "identities cannot rate themselves")
	}

	p := e.Params()
	now := e.clock()

	if p.GlobalPerHour > 0 {
		times, err := e.store.ActivityTimesSince(ctx, rater, schema.ActivityKindRating, now.Add(-time.Hour))
		if err != nil {
			return fmt.Errorf("count hourly ratings: %w", err)
		}
		if len(times) >= p.GlobalPerHour {
			return Limited(RuleHourlyRatingCap, p.GlobalPerHour,
				fmt.Sprintf("at most %d ratings per hour", p.GlobalPerHour),
				times[0].Add(time.Hour))
		}
	}

	if p.PairCooldown > 0 {
		last, err := e.store.GetRating(ctx, req.Surface, rater, req.Subject())
		if err != nil {
			return fmt.Errorf("read previous rating: %w", err)
		}
		if last != nil && now.Sub(last.UpdatedAt) < p.PairCooldown {
			return Limited(RulePairCooldown, 0,
				"this target was rated recently",
				last.UpdatedAt.Add(p.PairCooldown).UTC())
		}
	}

	if p.RequireInteractionDays > 0 {
		since := now.Add(-time.Duration(p.RequireInteractionDays * float64(24*time.Hour)))
		ok, err := e.store.HasInteractionSince(ctx, rater, author, since)
		if err != nil {
			return fmt.Errorf("check interaction: %w", err)
		}
		if !ok {
			return forbidden(RuleInteractionRequired, "reply to this identity before rating it")
		}
	}

	return nil
}

// ratedAuthor is the identity key that owns what is being rated. A post's
// author comes from its recorded post activity and otherwise from
// TargetAuthor; a post with neither is rejected.
func (e *Engine) ratedAuthor(ctx context.Context, req RatingRequest) (string, error) {
	if req.Surface == schema.RatingSurfacePeer {
		return req.Target, nil
	}

	post, err := e.store.GetActivity(ctx, req.Target)
	if err != nil {
		return "", fmt.Errorf("read post %s: %w", req.Target, err)
	}
	if post != nil && post.Kind == schema.ActivityKindPost {
		return post.Author, nil
	}
	if req.TargetAuthor == "" {
		return "", invalid(RuleInvalidTarget, "the author of post %q is unknown", req.Target)
	}
	return req.TargetAuthor, nil
}

func (e *Engine) authorQuota(ctx context.Context, author schema.Identity) (schema.Quota, float64, error) {
	if !author.Valid() {
		return schema.Quota{}, 0, invalid(RuleInvalidIdentity, "author identity is missing or malformed")
	}

	s, err := e.currentScore(ctx, schema.RatingSurfacePeer, author.Key())
	if err != nil {
		return schema.Quota{}, 0, err
	}
	return score.QuotasForScore(s.BayesianMean), s.BayesianMean, nil
}

// PostQuota reports the post allowance of the author for the current UTC
// day without rejecting anything.
func (e *Engine) PostQuota(ctx context.Context, author schema.Identity) (*Decision, error) {
	quota, mean, err := e.authorQuota(ctx, author)
	if err != nil {
		return nil, err
	}

	used, err := e.store.CountActivitySince(ctx, author.Key(), schema.ActivityKindPost, "", startOfDay(e.clock()))
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	return &Decision{
		Quota:        quota,
		BayesianMean: mean,
		Used:         used,
		Remaining:    remaining(quota.PostsPerDay, used),
	}, nil
}

// CanCreatePost checks the daily post quota of the author's tier.
func (e *Engine) CanCreatePost(ctx context.Context, author schema.Identity) (*Decision, error) {
	d, err := e.PostQuota(ctx, author)
	if err != nil {
		return nil, err
	}
	if d.Remaining == 0 {
		return nil, Limited(RuleDailyPostQuota, d.Quota.PostsPerDay,
			fmt.Sprintf("daily post quota of %d reached", d.Quota.PostsPerDay), time.Time{})
	}
	return d, nil
}

// CanCreateReply checks the daily reply quota and the per-thread cap.
func (e *Engine) CanCreateReply(ctx context.Context, author schema.Identity, threadID string) (*Decision, error) {
	if threadID == "" {
		return nil, invalid(RuleInvalidThread, "thread id is required")
	}

	quota, mean, err := e.authorQuota(ctx, author)
	if err != nil {
		return nil, err
	}

	midnight := startOfDay(e.clock())
	used, err := e.store.CountActivitySince(ctx, author.Key(), schema.ActivityKindReply, "", midnight)
	if err != nil {
		return nil, fmt.Errorf("count replies: %w", err)
	}
	if used >= quota.RepliesPerDay {
		return nil, Limited(RuleDailyReplyQuota, quota.RepliesPerDay,
			fmt.Sprintf("daily reply quota of %d reached", quota.RepliesPerDay), time.Time{})
	}

	inThread, err := e.store.CountActivitySince(ctx, author.Key(), schema.ActivityKindReply, threadID, midnight)
	if err != nil {
		return nil, fmt.Errorf("count thread replies: %w", err)
	}
	if inThread >= quota.PerThreadDaily {
		return nil, Limited(RuleThreadCap, quota.PerThreadDaily,
			fmt.Sprintf("at most %d replies per thread per day", quota.PerThreadDaily), time.Time{})
	}

	return &Decision{
		Quota:           quota,
		BayesianMean:    mean,
		Used:            used,
		Remaining:       remaining(quota.RepliesPerDay, used),
		ThreadID:        threadID,
		ThreadUsed:      inThread,
		ThreadRemaining: remaining(quota.PerThreadDaily, inThread),
	}, nil
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

// RecordActivity stores a post or reply the caller has persisted so that
// later quota and interaction checks count it.
func (e *Engine) RecordActivity(ctx context.Context, a schema.Activity) (*schema.Activity, error) {
	if _, err := schema.ParseIdentity(a.Author); err != nil {
		return nil, invalid(RuleInvalidIdentity, "author identity is missing or malformed")
	}
	switch a.Kind {
	case schema.ActivityKindPost:
		a.ThreadID = ""
		a.ParentAuthor = ""
	case schema.ActivityKindReply:
		if a.ThreadID == "" {
			return nil, invalid(RuleInvalidThread, "thread id is required")
		}
		if a.ParentAuthor != "" {
			if _, err := schema.ParseIdentity(a.ParentAuthor); err != nil {
				return nil, invalid(RuleInvalidIdentity, "parent author is malformed")
			}
		}
	default:
		return nil, invalid(RuleInvalidValue, "unknown activity kind %q", a.Kind)
	}

	a.ID = uuid.New().String()
	a.CreatedAt = e.clock()
	if err := e.store.AddActivity(ctx, a); err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}
	return &a, nil
}
