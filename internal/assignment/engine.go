// Package assignment enforces the driver-car exclusivity state machine: a
// car is held by at most one driver, a driver holds at most one car, and the
// two views never disagree. The link is stored only on the driver document;
// a car's current driver is always resolved by reverse lookup, so there is
// no second copy of the relationship that could drift.
package assignment

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fleetops/fleet-dispatch/internal/apperrors"
	"github.com/fleetops/fleet-dispatch/internal/db"
	"github.com/fleetops/fleet-dispatch/internal/locks"
	"github.com/fleetops/fleet-dispatch/internal/models"
)

// Engine mediates car selection and deselection. It owns no storage; it
// reads and writes through the driver and car collections under per-entity
// locks so concurrent claims for one car resolve to exactly one winner.
type Engine struct {
	drivers db.DriverCollection
	cars    db.CarCollection
	locks   *locks.Keyed
}

// NewEngine creates an assignment engine. The keyed locks must be shared
// with every other component that mutates the assignment link.
func NewEngine(drivers db.DriverCollection, cars db.CarCollection, keyed *locks.Keyed) *Engine {
	return &Engine{drivers: drivers, cars: cars, locks: keyed}
}

// SelectCar assigns the car to the driver. Only online drivers may select; a
// car held by another driver yields a conflict; re-selecting the held car is
// an idempotent no-op. A driver already holding a different car releases it
// implicitly: the link is a single field on the driver document, so the
// reassignment is one atomic write.
func (e *Engine) SelectCar(ctx context.Context, driverID, carID int64) error {
	unlockDriver := e.locks.LockDriver(driverID)
	defer unlockDriver()

	driver, err := e.drivers.FindDriverByID(ctx, driverID)
	if err != nil {
		return apperrors.Internal("could not load driver", err)
	}
	if driver == nil {
		return apperrors.NotFound("could not find driver with id %d", driverID)
	}

	if driver.OnlineStatus != models.StatusOnline {
		return apperrors.InvalidState("only online drivers may select a car")
	}

	unlockCar := e.locks.LockCar(carID)
	defer unlockCar()

	car, err := e.cars.FindCarByID(ctx, carID)
	if err != nil {
		return apperrors.Internal("could not load car", err)
	}
	if car == nil {
		// a missing car is bad input to the mutation, not a missing resource
		return apperrors.ConstraintViolation("car to be assigned not found")
	}

	holder, err := e.drivers.FindDriverByCarID(ctx, carID)
	if err != nil {
		return apperrors.Internal("could not check car assignment", err)
	}
	if holder != nil {
		if holder.ID == driverID {
			return nil // selection is idempotent
		}
		return apperrors.Conflict("this car is already taken by another driver")
	}

	if err := e.drivers.UpdateDriverFields(ctx, driverID, bson.M{"car_id": carID}, nil); err != nil {
		return apperrors.Internal("could not assign car", err)
	}

	log.WithFields(log.Fields{"driver_id": driverID, "car_id": carID}).Info("car selected")
	return nil
}

// DeselectCar releases the driver's car. A driver holding no car is a no-op.
func (e *Engine) DeselectCar(ctx context.Context, driverID int64) error {
	unlockDriver := e.locks.LockDriver(driverID)
	defer unlockDriver()

	driver, err := e.drivers.FindDriverByID(ctx, driverID)
	if err != nil {
		return apperrors.Internal("could not load driver", err)
	}
	if driver == nil {
		return apperrors.NotFound("could not find driver with id %d", driverID)
	}

	if driver.CarID == nil {
		return nil // deselection is idempotent
	}

	unlockCar := e.locks.LockCar(*driver.CarID)
	defer unlockCar()

	if err := e.drivers.UpdateDriverFields(ctx, driverID, nil, bson.M{"car_id": ""}); err != nil {
		return apperrors.Internal("could not release car", err)
	}

	log.WithFields(log.Fields{"driver_id": driverID, "car_id": *driver.CarID}).Info("car deselected")
	return nil
}

// FindDriversByCarRating returns the drivers currently assigned to cars with
// the given rating. Cars without a driver are skipped; order is unspecified.
func (e *Engine) FindDriversByCarRating(ctx context.Context, rating int) ([]models.Driver, error) {
	cars, err := e.cars.FindCarsByRating(ctx, rating)
	if err != nil {
		return nil, apperrors.Internal("could not list cars", err)
	}

	drivers := make([]models.Driver, 0, len(cars))
	for _, car := range cars {
		holder, err := e.drivers.FindDriverByCarID(ctx, car.ID)
		if err != nil {
			return nil, apperrors.Internal("could not resolve car assignment", err)
		}
		if holder != nil {
			drivers = append(drivers, *holder)
		}
	}
	return drivers, nil
}

// FindDriverByLicensePlate resolves the car by plate, then its assigned
// driver. Both a missing car and an unassigned car surface as not-found,
// with distinct messages.
func (e *Engine) FindDriverByLicensePlate(ctx context.Context, plate string) (*models.Driver, error) {
	car, err := e.cars.FindCarByLicensePlate(ctx, plate)
	if err != nil {
		return nil, apperrors.Internal("could not load car", err)
	}
	if car == nil {
		return nil, apperrors.NotFound("car with license plate %s does not exist", plate)
	}

	holder, err := e.drivers.FindDriverByCarID(ctx, car.ID)
	if err != nil {
		return nil, apperrors.Internal("could not resolve car assignment", err)
	}
	if holder == nil {
		return nil, apperrors.NotFound("car with license plate %s has no driver assigned", plate)
	}
	return holder, nil
}
