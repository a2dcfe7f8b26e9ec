package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soonab/Soonab-sub000/schema"
)

func (m *mongoDB) UpsertRating(ctx context.Context, r *schema.Rating) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.RatingCollection)

	id := uuid.New().String()
	query := bson.M{
		"surface": r.Surface,
		"rater":   r.Rater,
		"target":  r.Target,
	}
	update := bson.M{
		"$set": bson.M{
			"value":      r.Value,
			"updated_at": r.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        id,
			"created_at": r.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var previous schema.Rating
	err := c.FindOneAndUpdate(ctx, query, update, opts).Decode(&previous)
	switch {
	case err == mongo.ErrNoDocuments:
		r.ID = id
		return true, nil
	case mongo.IsDuplicateKeyError(err):
		return false, ErrDuplicateRating
	case err != nil:
		log.WithFields(log.Fields{
			"prefix": mongoLogPrefix,
			"rater":  r.Rater,
			"target": r.Target,
			"error":  err,
		}).Error("upsert rating")
		return false, err
	}

	r.ID = previous.ID
	r.CreatedAt = previous.CreatedAt
	return false, nil
}

func (m *mongoDB) GetRating(ctx context.Context, surface schema.RatingSurface, rater, target string) (*schema.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.RatingCollection)

	var r schema.Rating
	err := c.FindOne(ctx, bson.M{"surface": surface, "rater": rater, "target": target}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (m *mongoDB) findRatings(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]schema.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.RatingCollection)

	cursor, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	ratings := make([]schema.Rating, 0)
	if err := cursor.All(ctx, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (m *mongoDB) ListRatingsByTarget(ctx context.Context, surface schema.RatingSurface, target string) ([]schema.Rating, error) {
	return m.findRatings(ctx, bson.M{"surface": surface, "target": target},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}}))
}

func (m *mongoDB) ListRatingsByRater(ctx context.Context, rater string) ([]schema.Rating, error) {
	return m.findRatings(ctx, bson.M{"rater": rater})
}

func (m *mongoDB) DistinctRatersSince(ctx context.Context, surface schema.RatingSurface, target string, since time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.RatingCollection)

	values, err := c.Distinct(ctx, "rater", bson.M{
		"surface":    surface,
		"target":     target,
		"updated_at": bson.M{"$gte": since},
	})
	if err != nil {
		return nil, err
	}

	raters := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			raters = append(raters, s)
		}
	}
	return raters, nil
}

func (m *mongoDB) RekeyRating(ctx context.Context, id, rater, target string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.RatingCollection)

	result, err := c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"rater": rater, "target": target},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateRating
		}
		return err
	}
	if result.MatchedCount == 0 {
		return ErrRatingNotFound
	}
	return nil
}

func (m *mongoDB) DeleteRating(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.RatingCollection)

	_, err := c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (m *mongoDB) DeleteRatingsByTarget(ctx context.Context, surface schema.RatingSurface, target string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.RatingCollection)

	result, err := c.DeleteMany(ctx, bson.M{"surface": surface, "target": target})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// ListSubjects returns every target that has ratings or a cached score.
func (m *mongoDB) ListSubjects(ctx context.Context) ([]schema.Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := []bson.D{
		AggregationGroup(bson.M{"surface": "$surface", "target": "$target"}, bson.D{}),
		AggregationSort(bson.D{{Key: "_id.surface", Value: 1}, {Key: "_id.target", Value: 1}}),
	}

	seen := make(map[schema.Subject]struct{})
	subjects := make([]schema.Subject, 0)
	for _, name := range []string{schema.RatingCollection, schema.ScoreCollection} {
		cursor, err := m.collection(name).Aggregate(ctx, pipeline)
		if err != nil {
			return nil, err
		}

		var groups []struct {
			ID schema.Subject `bson:"_id"`
		}
		if err := cursor.All(ctx, &groups); err != nil {
			return nil, err
		}
		for _, g := range groups {
			if _, ok := seen[g.ID]; ok {
				continue
			}
			seen[g.ID] = struct{}{}
			subjects = append(subjects, g.ID)
		}
	}
	return subjects, nil
}
