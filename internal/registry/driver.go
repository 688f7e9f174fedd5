package registry

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fleetops/fleet-dispatch/internal/apperrors"
	"github.com/fleetops/fleet-dispatch/internal/db"
	"github.com/fleetops/fleet-dispatch/internal/models"
)

const driverSequence = "drivers"

// DriverRegistry enforces the driver invariants: username uniqueness at
// creation, soft deletion, and leave-unchanged semantics for partial updates.
// It intentionally returns soft-deleted drivers from its read operations;
// filtering them out is a read-adapter concern, and internal callers need
// deleted records.
type DriverRegistry struct {
	drivers db.DriverCollection
	seq     db.Sequencer
}

// NewDriverRegistry creates a driver registry.
func NewDriverRegistry(drivers db.DriverCollection, seq db.Sequencer) *DriverRegistry {
	return &DriverRegistry{drivers: drivers, seq: seq}
}

// Get returns the driver with the given id, deleted or not.
func (r *DriverRegistry) Get(ctx context.Context, id int64) (*models.Driver, error) {
	driver, err := r.drivers.FindDriverByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("could not load driver", err)
	}
	if driver == nil {
		return nil, apperrors.NotFound("could not find driver with id %d", id)
	}
	return driver, nil
}

// Find returns drivers filtered by username, online status, both, or neither.
func (r *DriverRegistry) Find(ctx context.Context, username string, status *models.OnlineStatus) ([]models.Driver, error) {
	filter := bson.M{}
	if username != "" {
		filter["username"] = username
	}
	if status != nil {
		filter["online_status"] = *status
	}

	drivers, err := r.drivers.FindDrivers(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("could not list drivers", err)
	}
	return drivers, nil
}

// Create persists a new driver. Online status defaults to OFFLINE and the
// deleted flag to false regardless of the input.
func (r *DriverRegistry) Create(ctx context.Context, driver models.Driver) (*models.Driver, error) {
	if driver.Username == "" {
		return nil, apperrors.ConstraintViolation("username can not be empty")
	}
	if driver.Password == "" {
		return nil, apperrors.ConstraintViolation("password can not be empty")
	}

	existing, err := r.drivers.FindDriverByUsername(ctx, driver.Username)
	if err != nil {
		return nil, apperrors.Internal("could not check username", err)
	}
	if existing != nil {
		log.WithField("username", driver.Username).Warn("rejected driver create: duplicate username")
		return nil, apperrors.ConstraintViolation("driver with this username already exists")
	}

	id, err := r.seq.Next(ctx, driverSequence)
	if err != nil {
		return nil, apperrors.Internal("could not allocate driver id", err)
	}
	driver.ID = id
	driver.OnlineStatus = models.StatusOffline
	driver.Deleted = false
	driver.CarID = nil
	driver.CoordinateUpdatedAt = nil
	driver.CreatedAt = time.Now()

	if err := r.drivers.InsertDriver(ctx, driver); err != nil {
		return nil, apperrors.Internal("could not create driver", err)
	}
	return &driver, nil
}

// Delete soft-deletes the driver: the record stays, the deleted flag is set.
// A held car stays assigned; read adapters hide deleted drivers.
func (r *DriverRegistry) Delete(ctx context.Context, id int64) error {
	err := r.drivers.UpdateDriverFields(ctx, id, bson.M{"deleted": true}, nil)
	if err != nil {
		if isNoDocuments(err) {
			return apperrors.NotFound("could not find driver with id %d", id)
		}
		return apperrors.Internal("could not delete driver", err)
	}
	return nil
}

// UpdatePartially overwrites exactly the non-nil patch fields. A coordinate
// write also stamps the coordinate-updated timestamp. Setting the status to
// OFFLINE does not release a held car; deselection is a separate operation.
func (r *DriverRegistry) UpdatePartially(ctx context.Context, id int64, patch models.DriverPatch) error {
	existing, err := r.drivers.FindDriverByID(ctx, id)
	if err != nil {
		return apperrors.Internal("could not load driver", err)
	}
	if existing == nil {
		return apperrors.NotFound("could not find driver with id %d", id)
	}

	set := bson.M{}
	if patch.Username != nil {
		if *patch.Username == "" {
			return apperrors.ConstraintViolation("username can not be empty")
		}
		if *patch.Username != existing.Username {
			other, err := r.drivers.FindDriverByUsername(ctx, *patch.Username)
			if err != nil {
				return apperrors.Internal("could not check username", err)
			}
			if other != nil {
				return apperrors.ConstraintViolation("driver with this username already exists")
			}
		}
		set["username"] = *patch.Username
	}
	if patch.Password != nil {
		set["password"] = *patch.Password
	}
	if patch.OnlineStatus != nil {
		if !models.IsValidOnlineStatus(*patch.OnlineStatus) {
			return apperrors.ConstraintViolation("online status %q is not one of ONLINE, OFFLINE", *patch.OnlineStatus)
		}
		set["online_status"] = *patch.OnlineStatus
	}
	if patch.Coordinate != nil {
		set["coordinate"] = *patch.Coordinate
		set["coordinate_updated_at"] = time.Now()
	}

	if len(set) == 0 {
		return nil
	}

	if err := r.drivers.UpdateDriverFields(ctx, id, set, nil); err != nil {
		if isNoDocuments(err) {
			return apperrors.NotFound("could not find driver with id %d", id)
		}
		return apperrors.Internal("could not update driver", err)
	}
	return nil
}

// FilterDeleted returns the drivers that are not soft-deleted.
func FilterDeleted(drivers []models.Driver) []models.Driver {
	out := make([]models.Driver, 0, len(drivers))
	for _, d := range drivers {
		if !d.Deleted {
			out = append(out, d)
		}
	}
	return out
}
