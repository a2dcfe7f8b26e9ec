package store

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soonab/Soonab-sub000/schema"
)

func (m *mongoDB) AddBrigadeFlag(ctx context.Context, flag schema.BrigadeFlag) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.BrigadeFlagCollection)

	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}
	_, err := c.InsertOne(ctx, flag)
	return err
}

func (m *mongoDB) ListBrigadeFlags(ctx context.Context, surface schema.RatingSurface, target string, limit int) ([]schema.BrigadeFlag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.BrigadeFlagCollection)

	filter := bson.M{}
	if surface != "" {
		filter["surface"] = surface
	}
	if target != "" {
		filter["target"] = target
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	flags := make([]schema.BrigadeFlag, 0)
	if err := cursor.All(ctx, &flags); err != nil {
		return nil, err
	}
	return flags, nil
}
