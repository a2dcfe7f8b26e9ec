package store

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoLogPrefix = "mongo"

type mongoDB struct {
	client   *mongo.Client
	database string
}

func NewMongoStore(client *mongo.Client, database string) Store {
	return &mongoDB{
		client:   client,
		database: database,
	}
}

// OpenMongoStore connects to uri and returns a store on the given database.
func OpenMongoStore(ctx context.Context, uri, database string) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.WithFields(log.Fields{
			"prefix": mongoLogPrefix,
			"error":  err,
		}).Error("ping mongo")
		return nil, err
	}

	return NewMongoStore(client, database), nil
}

func (m *mongoDB) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

// RunInTransaction binds the session to the context passed to fn, so every
// call made through tx joins the transaction.
func (m *mongoDB) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return ErrNestedTx
	}

	session, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, m)
	})
	return err
}

func (m *mongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
