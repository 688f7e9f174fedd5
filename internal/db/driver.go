package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetops/fleet-dispatch/internal/models"
)

// DriverCollection defines the interface for driver database operations.
// Lookup methods return (nil, nil) when no document matches. Soft-deleted
// drivers are returned like any other; filtering them is a caller concern.
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver models.Driver) error
	FindDriverByID(ctx context.Context, id int64) (*models.Driver, error)
	FindDriverByUsername(ctx context.Context, username string) (*models.Driver, error)
	FindDriverByCarID(ctx context.Context, carID int64) (*models.Driver, error)
	FindDrivers(ctx context.Context, filter bson.M) ([]models.Driver, error)
	UpdateDriverFields(ctx context.Context, id int64, set bson.M, unset bson.M) error
	ClearDriverCar(ctx context.Context, driverID, carID int64) error
}

// MongoDriverCollection implements DriverCollection for MongoDB
type MongoDriverCollection struct {
	Collection *mongo.Collection
}

// InsertDriver inserts a driver record into the collection.
func (c *MongoDriverCollection) InsertDriver(ctx context.Context, driver models.Driver) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.InsertOne(ctx, driver)
	return err
}

// FindDriverByID finds a driver by its id.
func (c *MongoDriverCollection) FindDriverByID(ctx context.Context, id int64) (*models.Driver, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

// FindDriverByUsername finds a driver by username.
func (c *MongoDriverCollection) FindDriverByUsername(ctx context.Context, username string) (*models.Driver, error) {
	return c.findOne(ctx, bson.M{"username": username})
}

// FindDriverByCarID finds the driver currently holding the given car. The
// assignment link lives only on the driver document, so this reverse lookup
// is how a car's current driver is resolved.
func (c *MongoDriverCollection) FindDriverByCarID(ctx context.Context, carID int64) (*models.Driver, error) {
	return c.findOne(ctx, bson.M{"car_id": carID})
}

func (c *MongoDriverCollection) findOne(ctx context.Context, filter bson.M) (*models.Driver, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	var driver models.Driver
	err := c.Collection.FindOne(ctx, filter).Decode(&driver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &driver, nil
}

// FindDrivers queries driver records from the collection.
func (c *MongoDriverCollection) FindDrivers(ctx context.Context, filter bson.M) ([]models.Driver, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}

	cursor, err := c.Collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var drivers []models.Driver
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// UpdateDriverFields applies $set/$unset updates to a driver document in a
// single atomic write. Either map may be nil.
func (c *MongoDriverCollection) UpdateDriverFields(ctx context.Context, id int64, set bson.M, unset bson.M) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return nil
	}

	result, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// ClearDriverCar unsets the driver's assignment link only if the driver still
// holds the given car. A miss is not an error: it means the link changed
// concurrently and the newer assignment wins.
func (c *MongoDriverCollection) ClearDriverCar(ctx context.Context, driverID, carID int64) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	_, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": driverID, "car_id": carID},
		bson.M{"$unset": bson.M{"car_id": ""}},
	)
	return err
}
