package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetops/fleet-dispatch/internal/models"
)

// CarCollection defines the interface for car database operations. Lookup
// methods return (nil, nil) when no document matches; the registries decide
// what absence means per call site.
type CarCollection interface {
	InsertCar(ctx context.Context, car models.Car) error
	FindCarByID(ctx context.Context, id int64) (*models.Car, error)
	FindCars(ctx context.Context, filter bson.M) ([]models.Car, error)
	FindCarByLicensePlate(ctx context.Context, plate string) (*models.Car, error)
	FindCarsByRating(ctx context.Context, rating int) ([]models.Car, error)
	ReplaceCar(ctx context.Context, id int64, car models.Car) error
	DeleteCar(ctx context.Context, id int64) error
}

// MongoCarCollection implements CarCollection for MongoDB
type MongoCarCollection struct {
	Collection *mongo.Collection
}

// InsertCar inserts a car record into the collection.
func (c *MongoCarCollection) InsertCar(ctx context.Context, car models.Car) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.InsertOne(ctx, car)
	return err
}

// FindCarByID finds a car by its id.
func (c *MongoCarCollection) FindCarByID(ctx context.Context, id int64) (*models.Car, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	var car models.Car
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&car)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &car, nil
}

// FindCars queries car records from the collection.
func (c *MongoCarCollection) FindCars(ctx context.Context, filter bson.M) ([]models.Car, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cars []models.Car
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// FindCarByLicensePlate finds a car by its license plate (exact match).
func (c *MongoCarCollection) FindCarByLicensePlate(ctx context.Context, plate string) (*models.Car, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	var car models.Car
	err := c.Collection.FindOne(ctx, bson.M{"license_plate": plate}).Decode(&car)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &car, nil
}

// FindCarsByRating finds all cars with the given rating.
func (c *MongoCarCollection) FindCarsByRating(ctx context.Context, rating int) ([]models.Car, error) {
	return c.FindCars(ctx, bson.M{"rating": rating})
}

// ReplaceCar replaces a car document by id.
func (c *MongoCarCollection) ReplaceCar(ctx context.Context, id int64, car models.Car) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	car.ID = id
	result, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": id}, car)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteCar deletes a car by its id.
func (c *MongoCarCollection) DeleteCar(ctx context.Context, id int64) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
