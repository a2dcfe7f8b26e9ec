package schema

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const indexTimeout = 30 * time.Second

// MongoDBIndexer creates the indexes the reputation store relies on. The
// unique indexes are the source of truth for rating and score uniqueness.
type MongoDBIndexer struct {
	connURI string
	dbName  string
}

func NewMongoDBIndexer(connURI, dbName string) *MongoDBIndexer {
	return &MongoDBIndexer{
		connURI: connURI,
		dbName:  dbName,
	}
}

func (m *MongoDBIndexer) IndexAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.connURI))
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	db := client.Database(m.dbName)
	for _, index := range []func(context.Context, *mongo.Database) error{
		m.IndexRatingCollection,
		m.IndexScoreCollection,
		m.IndexActivityCollection,
		m.IndexBrigadeFlagCollection,
		m.IndexScoreHistoryCollection,
	} {
		if err := index(ctx, db); err != nil {
			log.WithField("prefix", "indexer").WithError(err).Error("fail to create index")
			return err
		}
	}
	return nil
}

func (m *MongoDBIndexer) IndexRatingCollection(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(RatingCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "surface", Value: 1}, {Key: "rater", Value: 1}, {Key: "target", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "surface", Value: 1}, {Key: "target", Value: 1}, {Key: "updated_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "rater", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	return err
}

func (m *MongoDBIndexer) IndexScoreCollection(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ScoreCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "surface", Value: 1}, {Key: "target", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *MongoDBIndexer) IndexActivityCollection(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ActivityCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "author", Value: 1}, {Key: "kind", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "parent_author", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

func (m *MongoDBIndexer) IndexBrigadeFlagCollection(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(BrigadeFlagCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "surface", Value: 1}, {Key: "target", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (m *MongoDBIndexer) IndexScoreHistoryCollection(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ScoreHistoryCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}, {Key: "surface", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
