package archive

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/forcelayout/declutter/pkg/errors"
)

// Default Mongo locations.
const (
	DefaultDatabase   = "declutter"
	DefaultCollection = "runs"
)

// MongoConfig configures the Mongo archive backend.
type MongoConfig struct {
	// URI is the connection string, e.g. "mongodb://localhost:27017".
	URI string

	// Database and Collection name where records land. Empty values use
	// DefaultDatabase and DefaultCollection.
	Database   string
	Collection string
}

// MongoArchive appends run records to a MongoDB collection.
type MongoArchive struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoArchive connects to MongoDB and verifies the connection with a
// ping before returning.
func NewMongoArchive(ctx context.Context, cfg MongoConfig) (*MongoArchive, error) {
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "connect mongo")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "ping mongo")
	}

	return &MongoArchive{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Store appends one run record, stamping CreatedAt if the caller left it
// zero.
func (a *MongoArchive) Store(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := a.coll.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeArchive, err, "insert record")
	}
	return nil
}

// Recent returns up to limit records, newest first. It is a convenience for
// quick inspection; heavier analysis belongs in whatever reads the
// collection directly.
func (a *MongoArchive) Recent(ctx context.Context, limit int) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := a.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "find records")
	}
	defer cur.Close(ctx)

	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "decode records")
	}
	return recs, nil
}

// Close disconnects from MongoDB.
func (a *MongoArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.client.Disconnect(ctx)
}

var _ Archive = (*MongoArchive)(nil)
