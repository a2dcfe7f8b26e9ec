package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soonab/Soonab-sub000/schema"
)

// AddScoreRecord keeps the latest score of the owner for the UTC day of ts.
func (m *mongoDB) AddScoreRecord(ctx context.Context, owner string, surface schema.RatingSurface, score float64, ts int64) error {
	c := m.collection(schema.ScoreHistoryCollection)
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	date := dateOf(ts)
	query := bson.M{"owner": owner, "surface": surface, "date": date}
	update := bson.M{
		"$set": bson.M{
			"score": score,
			"ts":    ts,
		},
		"$setOnInsert": bson.M{
			"owner":   owner,
			"surface": surface,
			"date":    date,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := c.UpdateOne(ctx, query, update, opts)
	return err
}

func (m *mongoDB) GetScoreAverage(ctx context.Context, owner string, surface schema.RatingSurface, start, end int64) (float64, error) {
	c := m.collection(schema.ScoreHistoryCollection)
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := []bson.D{
		AggregationMatch(bson.M{
			"owner":   owner,
			"surface": surface,
			"date":    bson.M{"$gte": dateOf(start), "$lte": dateOf(end)},
		}),
		AggregationGroup("$owner", bson.D{
			{Key: "avg", Value: bson.M{"$avg": "$score"}},
		}),
	}

	cursor, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)
	if !cursor.Next(ctx) {
		return 0, nil
	}

	var result struct {
		Avg float64 `bson:"avg"`
	}
	if err := cursor.Decode(&result); err != nil {
		return 0, err
	}

	return result.Avg, nil
}
