// Package dbtest provides in-memory implementations of the db collection
// interfaces for tests that need real stateful behavior instead of
// call-by-call mocks.
package dbtest

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fleetops/fleet-dispatch/internal/models"
)

// FakeSequence implements db.Sequencer in memory.
type FakeSequence struct {
	mu   sync.Mutex
	next map[string]int64
}

// NewFakeSequence creates a sequence starting at 1 for every name.
func NewFakeSequence() *FakeSequence {
	return &FakeSequence{next: make(map[string]int64)}
}

// Next returns the next id for the named sequence.
func (s *FakeSequence) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[name]++
	return s.next[name], nil
}

// FakeCarCollection implements db.CarCollection on a map.
type FakeCarCollection struct {
	mu   sync.RWMutex
	cars map[int64]models.Car
}

// NewFakeCarCollection creates an empty car collection.
func NewFakeCarCollection() *FakeCarCollection {
	return &FakeCarCollection{cars: make(map[int64]models.Car)}
}

func (c *FakeCarCollection) InsertCar(_ context.Context, car models.Car) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cars[car.ID] = car
	return nil
}

func (c *FakeCarCollection) FindCarByID(_ context.Context, id int64) (*models.Car, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if car, ok := c.cars[id]; ok {
		return &car, nil
	}
	return nil, nil
}

func (c *FakeCarCollection) FindCars(_ context.Context, filter bson.M) ([]models.Car, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Car
	for _, car := range c.cars {
		if rating, ok := filter["rating"]; ok && car.Rating != rating.(int) {
			continue
		}
		out = append(out, car)
	}
	return out, nil
}

func (c *FakeCarCollection) FindCarByLicensePlate(_ context.Context, plate string) (*models.Car, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, car := range c.cars {
		if car.LicensePlate == plate {
			car := car
			return &car, nil
		}
	}
	return nil, nil
}

func (c *FakeCarCollection) FindCarsByRating(ctx context.Context, rating int) ([]models.Car, error) {
	return c.FindCars(ctx, bson.M{"rating": rating})
}

func (c *FakeCarCollection) ReplaceCar(_ context.Context, id int64, car models.Car) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cars[id]; !ok {
		return mongo.ErrNoDocuments
	}
	car.ID = id
	c.cars[id] = car
	return nil
}

func (c *FakeCarCollection) DeleteCar(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cars[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(c.cars, id)
	return nil
}

// FakeDriverCollection implements db.DriverCollection on a map.
type FakeDriverCollection struct {
	mu      sync.RWMutex
	drivers map[int64]models.Driver
}

// NewFakeDriverCollection creates an empty driver collection.
func NewFakeDriverCollection() *FakeDriverCollection {
	return &FakeDriverCollection{drivers: make(map[int64]models.Driver)}
}

func (c *FakeDriverCollection) InsertDriver(_ context.Context, driver models.Driver) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drivers[driver.ID] = driver
	return nil
}

func (c *FakeDriverCollection) FindDriverByID(_ context.Context, id int64) (*models.Driver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if driver, ok := c.drivers[id]; ok {
		return &driver, nil
	}
	return nil, nil
}

func (c *FakeDriverCollection) FindDriverByUsername(_ context.Context, username string) (*models.Driver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, driver := range c.drivers {
		if driver.Username == username {
			driver := driver
			return &driver, nil
		}
	}
	return nil, nil
}

func (c *FakeDriverCollection) FindDriverByCarID(_ context.Context, carID int64) (*models.Driver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, driver := range c.drivers {
		if driver.CarID != nil && *driver.CarID == carID {
			driver := driver
			return &driver, nil
		}
	}
	return nil, nil
}

func (c *FakeDriverCollection) FindDrivers(_ context.Context, filter bson.M) ([]models.Driver, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Driver
	for _, driver := range c.drivers {
		if username, ok := filter["username"]; ok && driver.Username != username.(string) {
			continue
		}
		if status, ok := filter["online_status"]; ok && driver.OnlineStatus != status.(models.OnlineStatus) {
			continue
		}
		out = append(out, driver)
	}
	return out, nil
}

func (c *FakeDriverCollection) UpdateDriverFields(_ context.Context, id int64, set bson.M, unset bson.M) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	driver, ok := c.drivers[id]
	if !ok {
		return mongo.ErrNoDocuments
	}

	for field, value := range set {
		switch field {
		case "username":
			driver.Username = value.(string)
		case "password":
			driver.Password = value.(string)
		case "online_status":
			driver.OnlineStatus = value.(models.OnlineStatus)
		case "coordinate":
			loc := value.(models.Location)
			driver.Coordinate = &loc
		case "coordinate_updated_at":
			ts := value.(time.Time)
			driver.CoordinateUpdatedAt = &ts
		case "car_id":
			carID := value.(int64)
			driver.CarID = &carID
		case "deleted":
			driver.Deleted = value.(bool)
		}
	}
	for field := range unset {
		if field == "car_id" {
			driver.CarID = nil
		}
	}

	c.drivers[id] = driver
	return nil
}

func (c *FakeDriverCollection) ClearDriverCar(_ context.Context, driverID, carID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	driver, ok := c.drivers[driverID]
	if !ok {
		return nil
	}
	if driver.CarID != nil && *driver.CarID == carID {
		driver.CarID = nil
		c.drivers[driverID] = driver
	}
	return nil
}
