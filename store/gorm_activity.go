package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soonab/Soonab-sub000/schema"
)

func (g *gormDB) AddActivity(ctx context.Context, a schema.Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return g.conn(ctx).Create(&a).Error
}

func (g *gormDB) GetActivity(ctx context.Context, id string) (*schema.Activity, error) {
	var a schema.Activity
	err := g.conn(ctx).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (g *gormDB) ActivityTimesSince(ctx context.Context, author string, kind schema.ActivityKind, since time.Time) ([]time.Time, error) {
	activities := make([]schema.Activity, 0)
	err := g.conn(ctx).
		Select("created_at").
		Where("author = ? AND kind = ? AND created_at > ?", author, kind, since).
		Order("created_at asc").
		Find(&activities).Error
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, 0, len(activities))
	for _, a := range activities {
		times = append(times, a.CreatedAt)
	}
	return times, nil
}

func (g *gormDB) CountActivitySince(ctx context.Context, author string, kind schema.ActivityKind, threadID string, since time.Time) (int, error) {
	query := g.conn(ctx).Model(&schema.Activity{}).
		Where("author = ? AND kind = ? AND created_at >= ?", author, kind, since)
	if threadID != "" {
		query = query.Where("thread_id = ?", threadID)
	}

	var count int64
	err := query.Count(&count).Error
	return int(count), err
}

func (g *gormDB) HasInteractionSince(ctx context.Context, author, parentAuthor string, since time.Time) (bool, error) {
	if author == parentAuthor {
		return false, nil
	}

	var count int64
	err := g.conn(ctx).Model(&schema.Activity{}).
		Where("author = ? AND parent_author = ? AND kind = ? AND created_at >= ?",
			author, parentAuthor, schema.ActivityKindReply, since).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (g *gormDB) ReassignActivities(ctx context.Context, from, to string) error {
	err := g.conn(ctx).Model(&schema.Activity{}).
		Where("author = ?", from).
		Update("author", to).Error
	if err != nil {
		return err
	}
	return g.conn(ctx).Model(&schema.Activity{}).
		Where("parent_author = ?", from).
		Update("parent_author", to).Error
}

func (g *gormDB) AddBrigadeFlag(ctx context.Context, flag schema.BrigadeFlag) error {
	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}
	return g.conn(ctx).Create(&flag).Error
}

func (g *gormDB) ListBrigadeFlags(ctx context.Context, surface schema.RatingSurface, target string, limit int) ([]schema.BrigadeFlag, error) {
	query := g.conn(ctx).Order("created_at desc")
	if surface != "" {
		query = query.Where("surface = ?", surface)
	}
	if target != "" {
		query = query.Where("target = ?", target)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	flags := make([]schema.BrigadeFlag, 0)
	err := query.Find(&flags).Error
	return flags, err
}
