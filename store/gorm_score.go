package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soonab/Soonab-sub000/schema"
)

func (g *gormDB) GetScore(ctx context.Context, surface schema.RatingSurface, target string) (*schema.Score, error) {
	var score schema.Score
	err := g.conn(ctx).Where("surface = ? AND target = ?", surface, target).Take(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &score, nil
}

func (g *gormDB) GetScores(ctx context.Context, surface schema.RatingSurface, targets []string) (map[string]schema.Score, error) {
	scores := make(map[string]schema.Score, len(targets))
	if len(targets) == 0 {
		return scores, nil
	}

	var found []schema.Score
	if err := g.conn(ctx).Where("surface = ? AND target IN ?", surface, targets).Find(&found).Error; err != nil {
		return nil, err
	}
	for _, s := range found {
		scores[s.Target] = s
	}
	return scores, nil
}

func (g *gormDB) UpsertScore(ctx context.Context, score schema.Score) error {
	return g.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "surface"}, {Name: "target"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "sum", "mean", "bayesian_mean", "updated_at"}),
	}).Create(&score).Error
}

func (g *gormDB) DeleteScore(ctx context.Context, surface schema.RatingSurface, target string) error {
	return g.conn(ctx).Where("surface = ? AND target = ?", surface, target).Delete(&schema.Score{}).Error
}

func (g *gormDB) AddScoreRecord(ctx context.Context, owner string, surface schema.RatingSurface, score float64, ts int64) error {
	record := schema.ScoreRecord{
		Owner:   owner,
		Surface: surface,
		Score:   score,
		Date:    dateOf(ts),
		TS:      ts,
	}
	return g.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "surface"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "ts"}),
	}).Create(&record).Error
}

func (g *gormDB) GetScoreAverage(ctx context.Context, owner string, surface schema.RatingSurface, start, end int64) (float64, error) {
	var avg float64
	err := g.conn(ctx).Model(&schema.ScoreRecord{}).
		Select("COALESCE(AVG(score), 0)").
		Where("owner = ? AND surface = ? AND date >= ? AND date <= ?", owner, surface, dateOf(start), dateOf(end)).
		Row().Scan(&avg)
	return avg, err
}
