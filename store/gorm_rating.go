package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/soonab/Soonab-sub000/schema"
)

func (g *gormDB) UpsertRating(ctx context.Context, r *schema.Rating) (bool, error) {
	existing, err := g.GetRating(ctx, r.Surface, r.Rater, r.Target)
	if err != nil {
		return false, err
	}

	if existing == nil {
		r.ID = uuid.New().String()
		if err := g.conn(ctx).Create(r).Error; err != nil {
			if isDuplicateKey(err) {
				return false, ErrDuplicateRating
			}
			log.WithFields(log.Fields{
				"prefix": gormLogPrefix,
				"rater":  r.Rater,
				"target": r.Target,
				"error":  err,
			}).Error("insert rating")
			return false, err
		}
		return true, nil
	}

	err = g.conn(ctx).Model(&schema.Rating{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"value":      r.Value,
			"updated_at": r.UpdatedAt,
		}).Error
	if err != nil {
		return false, err
	}

	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	return false, nil
}

func (g *gormDB) GetRating(ctx context.Context, surface schema.RatingSurface, rater, target string) (*schema.Rating, error) {
	var r schema.Rating
	err := g.conn(ctx).
		Where("surface = ? AND rater = ? AND target = ?", surface, rater, target).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (g *gormDB) ListRatingsByTarget(ctx context.Context, surface schema.RatingSurface, target string) ([]schema.Rating, error) {
	ratings := make([]schema.Rating, 0)
	err := g.conn(ctx).
		Where("surface = ? AND target = ?", surface, target).
		Order("updated_at asc").
		Find(&ratings).Error
	return ratings, err
}

func (g *gormDB) ListRatingsByRater(ctx context.Context, rater string) ([]schema.Rating, error) {
	ratings := make([]schema.Rating, 0)
	err := g.conn(ctx).Where("rater = ?", rater).Find(&ratings).Error
	return ratings, err
}

func (g *gormDB) DistinctRatersSince(ctx context.Context, surface schema.RatingSurface, target string, since time.Time) ([]string, error) {
	raters := make([]string, 0)
	err := g.conn(ctx).Model(&schema.Rating{}).
		Where("surface = ? AND target = ? AND updated_at >= ?", surface, target, since).
		Distinct("rater").
		Pluck("rater", &raters).Error
	return raters, err
}

func (g *gormDB) RekeyRating(ctx context.Context, id, rater, target string) error {
	result := g.conn(ctx).Model(&schema.Rating{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"rater": rater, "target": target})
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return ErrDuplicateRating
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRatingNotFound
	}
	return nil
}

func (g *gormDB) DeleteRating(ctx context.Context, id string) error {
	return g.conn(ctx).Where("id = ?", id).Delete(&schema.Rating{}).Error
}

func (g *gormDB) DeleteRatingsByTarget(ctx context.Context, surface schema.RatingSurface, target string) (int64, error) {
	result := g.conn(ctx).
		Where("surface = ? AND target = ?", surface, target).
		Delete(&schema.Rating{})
	return result.RowsAffected, result.Error
}

func (g *gormDB) ListSubjects(ctx context.Context) ([]schema.Subject, error) {
	var rated, scored []schema.Subject
	if err := g.conn(ctx).Model(&schema.Rating{}).Distinct("surface", "target").Find(&rated).Error; err != nil {
		return nil, err
	}
	if err := g.conn(ctx).Model(&schema.Score{}).Select("surface", "target").Find(&scored).Error; err != nil {
		return nil, err
	}

	seen := make(map[schema.Subject]struct{})
	subjects := make([]schema.Subject, 0, len(rated)+len(scored))
	for _, s := range append(rated, scored...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Surface != subjects[j].Surface {
			return subjects[i].Surface < subjects[j].Surface
		}
		return subjects[i].Target < subjects[j].Target
	})
	return subjects, nil
}
