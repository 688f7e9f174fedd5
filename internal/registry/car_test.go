package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fleetops/fleet-dispatch/internal/apperrors"
	"github.com/fleetops/fleet-dispatch/internal/db/dbtest"
	"github.com/fleetops/fleet-dispatch/internal/locks"
	"github.com/fleetops/fleet-dispatch/internal/models"
)

type carFixture struct {
	registry *CarRegistry
	cars     *dbtest.FakeCarCollection
	drivers  *dbtest.FakeDriverCollection
}

func newCarFixture() *carFixture {
	cars := dbtest.NewFakeCarCollection()
	drivers := dbtest.NewFakeDriverCollection()
	return &carFixture{
		registry: NewCarRegistry(cars, drivers, dbtest.NewFakeSequence(), locks.NewKeyed()),
		cars:     cars,
		drivers:  drivers,
	}
}

func validCar(plate string) models.Car {
	return models.Car{
		LicensePlate: plate,
		SeatCount:    4,
		Rating:       3,
		EngineType:   models.EngineElectric,
		Manufacturer: "Tesla",
		Model:        "Model 3",
	}
}

func TestCarRegistry_Create(t *testing.T) {
	f := newCarFixture()
	ctx := context.Background()

	created, err := f.registry.Create(ctx, validCar("B123"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("ids are sequential", func(t *testing.T) {
		second, err := f.registry.Create(ctx, validCar("C456"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.ID)
	})

	t.Run("duplicate plate rejected", func(t *testing.T) {
		_, err := f.registry.Create(ctx, validCar("B123"))
		assert.True(t, apperrors.IsKind(err, apperrors.KindConstraintViolation))
	})

	t.Run("invalid engine type rejected", func(t *testing.T) {
		car := validCar("D789")
		car.EngineType = "STEAM"
		_, err := f.registry.Create(ctx, car)
		assert.True(t, apperrors.IsKind(err, apperrors.KindConstraintViolation))
	})

	t.Run("empty plate rejected", func(t *testing.T) {
		_, err := f.registry.Create(ctx, validCar(""))
		assert.True(t, apperrors.IsKind(err, apperrors.KindConstraintViolation))
	})
}

func TestCarRegistry_Get(t *testing.T) {
	f := newCarFixture()
	ctx := context.Background()

	created, err := f.registry.Create(ctx, validCar("B123"))
	require.NoError(t, err)

	car, err := f.registry.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "B123", car.LicensePlate)

	_, err = f.registry.Get(ctx, 99)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCarRegistry_Update(t *testing.T) {
	f := newCarFixture()
	ctx := context.Background()

	created, err := f.registry.Create(ctx, validCar("B123"))
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		err := f.registry.Update(ctx, 99, validCar("B123"))
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})

	t.Run("plate must match", func(t *testing.T) {
		err := f.registry.Update(ctx, created.ID, validCar("OTHER"))
		assert.True(t, apperrors.IsKind(err, apperrors.KindConstraintViolation))
	})

	t.Run("plate match is case-insensitive", func(t *testing.T) {
		update := validCar("b123")
		update.Rating = 5
		require.NoError(t, f.registry.Update(ctx, created.ID, update))

		car, err := f.registry.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, car.Rating)
		// the stored plate casing wins
		assert.Equal(t, "B123", car.LicensePlate)
	})

	t.Run("id and created-at survive the replace", func(t *testing.T) {
		update := validCar("B123")
		update.SeatCount = 2
		require.NoError(t, f.registry.Update(ctx, created.ID, update))

		car, err := f.registry.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, car.ID)
		assert.Equal(t, created.CreatedAt.Unix(), car.CreatedAt.Unix())
		assert.Equal(t, 2, car.SeatCount)
	})
}

func TestCarRegistry_Delete(t *testing.T) {
	f := newCarFixture()
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		err := f.registry.Delete(ctx, 99)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})

	t.Run("removes the car", func(t *testing.T) {
		created, err := f.registry.Create(ctx, validCar("B123"))
		require.NoError(t, err)

		require.NoError(t, f.registry.Delete(ctx, created.ID))

		_, err = f.registry.Get(ctx, created.ID)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})

	t.Run("clears the holder's assignment link", func(t *testing.T) {
		created, err := f.registry.Create(ctx, validCar("C456"))
		require.NoError(t, err)

		carID := created.ID
		require.NoError(t, f.drivers.InsertDriver(ctx, models.Driver{
			ID:           1,
			Username:     "alice",
			OnlineStatus: models.StatusOnline,
			CarID:        &carID,
		}))

		require.NoError(t, f.registry.Delete(ctx, carID))

		driver, err := f.drivers.FindDriverByID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, driver)
		assert.Nil(t, driver.CarID)
	})
}

// holderHookDrivers runs a callback after each reverse holder lookup, so a
// test can commit assignment writes in the windows Delete leaves between its
// pre-read, its under-lock re-check, and the clear.
type holderHookDrivers struct {
	*dbtest.FakeDriverCollection
	calls  int
	onFind func(call int)
}

func (h *holderHookDrivers) FindDriverByCarID(ctx context.Context, carID int64) (*models.Driver, error) {
	driver, err := h.FakeDriverCollection.FindDriverByCarID(ctx, carID)
	h.calls++
	if h.onFind != nil {
		h.onFind(h.calls)
	}
	return driver, err
}

func TestCarRegistry_Delete_KeepsReassignmentCommittedDuringDelete(t *testing.T) {
	ctx := context.Background()

	cars := dbtest.NewFakeCarCollection()
	fakeDrivers := dbtest.NewFakeDriverCollection()
	drivers := &holderHookDrivers{FakeDriverCollection: fakeDrivers}
	registry := NewCarRegistry(cars, drivers, dbtest.NewFakeSequence(), locks.NewKeyed())

	car1, err := registry.Create(ctx, validCar("B123"))
	require.NoError(t, err)
	car2, err := registry.Create(ctx, validCar("C456"))
	require.NoError(t, err)

	require.NoError(t, fakeDrivers.InsertDriver(ctx, models.Driver{
		ID:           1,
		Username:     "alice",
		OnlineStatus: models.StatusOnline,
	}))

	drivers.onFind = func(call int) {
		switch call {
		case 1:
			// after the unlocked pre-read: alice selects the car being deleted
			require.NoError(t, fakeDrivers.UpdateDriverFields(ctx, 1, bson.M{"car_id": car1.ID}, nil))
		case 2:
			// after the under-lock re-check found her: she reassigns to car 2
			require.NoError(t, fakeDrivers.UpdateDriverFields(ctx, 1, bson.M{"car_id": car2.ID}, nil))
		}
	}

	require.NoError(t, registry.Delete(ctx, car1.ID))

	_, err = registry.Get(ctx, car1.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	// the committed selection of car 2 survives the deletion of car 1
	driver, err := fakeDrivers.FindDriverByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, driver)
	require.NotNil(t, driver.CarID)
	assert.Equal(t, car2.ID, *driver.CarID)
}

func TestCarRegistry_Lookups(t *testing.T) {
	f := newCarFixture()
	ctx := context.Background()

	ratedFive := validCar("X111")
	ratedFive.Rating = 5
	_, err := f.registry.Create(ctx, ratedFive)
	require.NoError(t, err)

	ratedFive2 := validCar("X222")
	ratedFive2.Rating = 5
	_, err = f.registry.Create(ctx, ratedFive2)
	require.NoError(t, err)

	_, err = f.registry.Create(ctx, validCar("Y333"))
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		cars, err := f.registry.List(ctx)
		require.NoError(t, err)
		assert.Len(t, cars, 3)
	})

	t.Run("by rating", func(t *testing.T) {
		cars, err := f.registry.FindByRating(ctx, 5)
		require.NoError(t, err)
		assert.Len(t, cars, 2)
	})

	t.Run("by plate", func(t *testing.T) {
		car, err := f.registry.GetByLicensePlate(ctx, "Y333")
		require.NoError(t, err)
		assert.Equal(t, "Y333", car.LicensePlate)

		_, err = f.registry.GetByLicensePlate(ctx, "ZZZZ")
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})
}
