package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"thermolog-server/internal/modules/temperature/types"
)

type readingDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	DeviceID    string             `bson:"deviceId"`
	Temperature float64            `bson:"temperature"`
	Timestamp   time.Time          `bson:"timestamp"`
}

type mongoRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
	now     func() time.Time
}

// NewMongoRepository stores readings as documents in coll. Every call is
// bounded by timeout on top of the caller's context.
func NewMongoRepository(coll *mongo.Collection, timeout time.Duration) ReadingRepository {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &mongoRepository{coll: coll, timeout: timeout, now: time.Now}
}

// EnsureIndexes creates the range-scan index on (timestamp, _id).
func EnsureIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("timestamp_id"),
	})
	if err != nil {
		return fmt.Errorf("create readings index: %w", err)
	}
	return nil
}

func (r *mongoRepository) Append(ctx context.Context, reading types.Reading) (types.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reading = stamp(reading, r.now)
	doc := readingDocument{
		ID:          primitive.NewObjectID(),
		DeviceID:    reading.DeviceID,
		Temperature: reading.Temperature,
		Timestamp:   reading.Timestamp,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return types.Reading{}, fmt.Errorf("%w: insert reading: %w", types.ErrStorageUnavailable, err)
	}
	reading.ID = doc.ID.Hex()
	return reading, nil
}

func (r *mongoRepository) RangeQuery(ctx context.Context, start, end time.Time) ([]types.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"timestamp": bson.M{"$gte": start.UTC(), "$lte": end.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find readings: %w", types.ErrStorageUnavailable, err)
	}
	var docs []readingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode readings: %w", types.ErrStorageUnavailable, err)
	}

	out := make([]types.Reading, 0, len(docs))
	for _, d := range docs {
		out = append(out, types.Reading{
			ID:          d.ID.Hex(),
			DeviceID:    d.DeviceID,
			Temperature: d.Temperature,
			Timestamp:   d.Timestamp.UTC(),
		})
	}
	return out, nil
}

func (r *mongoRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorageUnavailable, err)
	}
	return nil
}
