package store

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soonab/Soonab-sub000/schema"
)

// GetScore returns nil without error when the target was never scored.
func (m *mongoDB) GetScore(ctx context.Context, surface schema.RatingSurface, target string) (*schema.Score, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ScoreCollection)

	var score schema.Score
	err := c.FindOne(ctx, bson.M{"surface": surface, "target": target}).Decode(&score)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.WithFields(log.Fields{
			"prefix": mongoLogPrefix,
			"target": target,
			"error":  err,
		}).Error("get score")
		return nil, err
	}
	return &score, nil
}

func (m *mongoDB) GetScores(ctx context.Context, surface schema.RatingSurface, targets []string) (map[string]schema.Score, error) {
	scores := make(map[string]schema.Score, len(targets))
	if len(targets) == 0 {
		return scores, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ScoreCollection)

	cursor, err := c.Find(ctx, bson.M{"surface": surface, "target": bson.M{"$in": targets}})
	if err != nil {
		return nil, err
	}

	var found []schema.Score
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}
	for _, s := range found {
		scores[s.Target] = s
	}
	return scores, nil
}

func (m *mongoDB) UpsertScore(ctx context.Context, score schema.Score) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ScoreCollection)

	query := bson.M{"surface": score.Surface, "target": score.Target}
	update := bson.M{
		"$set": bson.M{
			"count":         score.Count,
			"sum":           score.Sum,
			"mean":          score.Mean,
			"bayesian_mean": score.BayesianMean,
			"updated_at":    score.UpdatedAt,
		},
	}

	// a concurrent upsert may hit the unique index; inside a session the
	// transaction is already aborted, so the error goes to the caller
	_, err := c.UpdateOne(ctx, query, update, options.Update().SetUpsert(true))
	if err != nil && mongo.SessionFromContext(ctx) == nil && mongo.IsDuplicateKeyError(err) {
		_, err = c.UpdateOne(ctx, query, update)
	}
	return err
}

func (m *mongoDB) DeleteScore(ctx context.Context, surface schema.RatingSurface, target string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ScoreCollection)

	_, err := c.DeleteOne(ctx, bson.M{"surface": surface, "target": target})
	return err
}
