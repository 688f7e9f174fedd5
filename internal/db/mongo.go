package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB at the given URI and verifies the
// connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique indexes backing the registry-level
// uniqueness checks. Safe to call on every startup.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	unique := options.Index().SetUnique(true)

	_, err := database.Collection("cars").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "license_plate", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("create cars index: %w", err)
	}

	_, err = database.Collection("drivers").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("create drivers index: %w", err)
	}

	_, err = database.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	return nil
}

// Sequencer hands out numeric entity ids.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Sequence implements Sequencer on a counters collection using the
// findOneAndUpdate $inc pattern.
type Sequence struct {
	Collection *mongo.Collection
}

// Next returns the next id for the named sequence, starting at 1.
func (s *Sequence) Next(ctx context.Context, name string) (int64, error) {
	if s.Collection == nil {
		return 0, fmt.Errorf("mongo collection is nil")
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Value int64 `bson:"value"`
	}
	err := s.Collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next sequence %q: %w", name, err)
	}
	return counter.Value, nil
}
