// Package registry owns entity CRUD and the uniqueness rules for cars and
// drivers. The assignment state machine between the two lives in the
// assignment package.
package registry

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fleetops/fleet-dispatch/internal/apperrors"
	"github.com/fleetops/fleet-dispatch/internal/db"
	"github.com/fleetops/fleet-dispatch/internal/locks"
	"github.com/fleetops/fleet-dispatch/internal/models"
)

const carSequence = "cars"

// CarRegistry enforces the car invariants: license plate uniqueness at
// creation, plate immutability through update, and referential consistency
// with the driver-side assignment link on deletion.
type CarRegistry struct {
	cars    db.CarCollection
	drivers db.DriverCollection
	seq     db.Sequencer
	locks   *locks.Keyed
}

// NewCarRegistry creates a car registry. The keyed locks must be the same
// instance the assignment engine uses, so deletion and assignment operations
// on one car are mutually exclusive.
func NewCarRegistry(cars db.CarCollection, drivers db.DriverCollection, seq db.Sequencer, keyed *locks.Keyed) *CarRegistry {
	return &CarRegistry{cars: cars, drivers: drivers, seq: seq, locks: keyed}
}

// Get returns the car with the given id.
func (r *CarRegistry) Get(ctx context.Context, id int64) (*models.Car, error) {
	car, err := r.cars.FindCarByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("could not load car", err)
	}
	if car == nil {
		return nil, apperrors.NotFound("car with id %d not found", id)
	}
	return car, nil
}

// List returns all cars, order unspecified.
func (r *CarRegistry) List(ctx context.Context) ([]models.Car, error) {
	cars, err := r.cars.FindCars(ctx, bson.M{})
	if err != nil {
		return nil, apperrors.Internal("could not list cars", err)
	}
	return cars, nil
}

// GetByLicensePlate returns the car with the given plate (exact match as stored).
func (r *CarRegistry) GetByLicensePlate(ctx context.Context, plate string) (*models.Car, error) {
	car, err := r.cars.FindCarByLicensePlate(ctx, plate)
	if err != nil {
		return nil, apperrors.Internal("could not load car", err)
	}
	if car == nil {
		return nil, apperrors.NotFound("car with license plate %s not found", plate)
	}
	return car, nil
}

// FindByRating returns all cars with the given rating.
func (r *CarRegistry) FindByRating(ctx context.Context, rating int) ([]models.Car, error) {
	cars, err := r.cars.FindCarsByRating(ctx, rating)
	if err != nil {
		return nil, apperrors.Internal("could not list cars", err)
	}
	return cars, nil
}

// Create persists a new car, assigning its id and creation timestamp.
func (r *CarRegistry) Create(ctx context.Context, car models.Car) (*models.Car, error) {
	if car.LicensePlate == "" {
		return nil, apperrors.ConstraintViolation("license plate can not be empty")
	}
	if !models.IsValidEngineType(car.EngineType) {
		return nil, apperrors.ConstraintViolation("engine type %q is not one of PETROL, DIESEL, ELECTRIC, HYBRID", car.EngineType)
	}

	existing, err := r.cars.FindCarByLicensePlate(ctx, car.LicensePlate)
	if err != nil {
		return nil, apperrors.Internal("could not check license plate", err)
	}
	if existing != nil {
		log.WithField("license_plate", car.LicensePlate).Warn("rejected car create: duplicate license plate")
		return nil, apperrors.ConstraintViolation("car with this license plate number already exists")
	}

	id, err := r.seq.Next(ctx, carSequence)
	if err != nil {
		return nil, apperrors.Internal("could not allocate car id", err)
	}
	car.ID = id
	car.CreatedAt = time.Now()

	if err := r.cars.InsertCar(ctx, car); err != nil {
		return nil, apperrors.Internal("could not create car", err)
	}
	return &car, nil
}

// Update replaces the stored car, keeping id, creation timestamp and license
// plate: the incoming plate has to match the stored one case-insensitively.
func (r *CarRegistry) Update(ctx context.Context, id int64, car models.Car) error {
	existing, err := r.cars.FindCarByID(ctx, id)
	if err != nil {
		return apperrors.Internal("could not load car", err)
	}
	if existing == nil {
		return apperrors.NotFound("car with id %d not found", id)
	}

	if !strings.EqualFold(existing.LicensePlate, car.LicensePlate) {
		return apperrors.ConstraintViolation("license plate has to match")
	}
	if !models.IsValidEngineType(car.EngineType) {
		return apperrors.ConstraintViolation("engine type %q is not one of PETROL, DIESEL, ELECTRIC, HYBRID", car.EngineType)
	}

	car.ID = existing.ID
	car.LicensePlate = existing.LicensePlate
	car.CreatedAt = existing.CreatedAt

	if err := r.cars.ReplaceCar(ctx, id, car); err != nil {
		return apperrors.Internal("could not update car", err)
	}
	return nil
}

// Delete removes the car permanently. If a driver currently holds the car,
// their assignment link is cleared before the document goes away. The clear
// is conditional on the driver still holding this car, so a selection of a
// different car that commits between the pre-read and the clear is never
// undone; the newer assignment wins and the deletion proceeds.
func (r *CarRegistry) Delete(ctx context.Context, id int64) error {
	holder, err := r.drivers.FindDriverByCarID(ctx, id)
	if err != nil {
		return apperrors.Internal("could not check car assignment", err)
	}

	if holder != nil {
		// lock order driver before car, same as the assignment engine
		unlockDriver := r.locks.LockDriver(holder.ID)
		defer unlockDriver()
	}
	unlockCar := r.locks.LockCar(id)
	defer unlockCar()

	// re-check under the locks: the holder may have changed in between
	holder, err = r.drivers.FindDriverByCarID(ctx, id)
	if err != nil {
		return apperrors.Internal("could not check car assignment", err)
	}
	if holder != nil {
		// a holder found only by the re-check is not covered by a driver
		// lock; the conditional clear keeps this safe either way
		if err := r.drivers.ClearDriverCar(ctx, holder.ID, id); err != nil {
			return apperrors.Internal("could not release car from driver", err)
		}
		log.WithFields(log.Fields{"car_id": id, "driver_id": holder.ID}).Info("released car from driver before deletion")
	}

	if err := r.cars.DeleteCar(ctx, id); err != nil {
		if isNoDocuments(err) {
			return apperrors.NotFound("car with id %d not found", id)
		}
		return apperrors.Internal("could not delete car", err)
	}
	return nil
}
