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

func (m *mongoDB) AddActivity(ctx context.Context, a schema.Activity) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ActivityCollection)

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := c.InsertOne(ctx, a)
	return err
}

func (m *mongoDB) GetActivity(ctx context.Context, id string) (*schema.Activity, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ActivityCollection)

	var a schema.Activity
	err := c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		log.WithFields(log.Fields{
			"prefix":   mongoLogPrefix,
			"activity": id,
			"error":    err,
		}).Error("get activity")
		return nil, err
	}
	return &a, nil
}

func (m *mongoDB) ActivityTimesSince(ctx context.Context, author string, kind schema.ActivityKind, since time.Time) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ActivityCollection)

	cursor, err := c.Find(ctx,
		bson.M{"author": author, "kind": kind, "created_at": bson.M{"$gt": since}},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetProjection(bson.M{"created_at": 1}))
	if err != nil {
		return nil, err
	}

	var activities []schema.Activity
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}

	times := make([]time.Time, 0, len(activities))
	for _, a := range activities {
		times = append(times, a.CreatedAt)
	}
	return times, nil
}

func (m *mongoDB) CountActivitySince(ctx context.Context, author string, kind schema.ActivityKind, threadID string, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ActivityCollection)

	filter := bson.M{
		"author":     author,
		"kind":       kind,
		"created_at": bson.M{"$gte": since},
	}
	if threadID != "" {
		filter["thread_id"] = threadID
	}

	count, err := c.CountDocuments(ctx, filter)
	return int(count), err
}

func (m *mongoDB) HasInteractionSince(ctx context.Context, author, parentAuthor string, since time.Time) (bool, error) {
	if author == parentAuthor {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ActivityCollection)

	count, err := c.CountDocuments(ctx, bson.M{
		"author":        author,
		"parent_author": parentAuthor,
		"kind":          schema.ActivityKindReply,
		"created_at":    bson.M{"$gte": since},
	}, options.Count().SetLimit(1))
	return count > 0, err
}

func (m *mongoDB) ReassignActivities(ctx context.Context, from, to string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	c := m.collection(schema.ActivityCollection)

	if _, err := c.UpdateMany(ctx, bson.M{"author": from}, bson.M{"$set": bson.M{"author": to}}); err != nil {
		return err
	}
	_, err := c.UpdateMany(ctx, bson.M{"parent_author": from}, bson.M{"$set": bson.M{"parent_author": to}})
	return err
}
