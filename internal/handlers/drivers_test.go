package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleet-dispatch/internal/assignment"
	"github.com/fleetops/fleet-dispatch/internal/db/dbtest"
	"github.com/fleetops/fleet-dispatch/internal/locks"
	"github.com/fleetops/fleet-dispatch/internal/models"
	"github.com/fleetops/fleet-dispatch/internal/registry"
)

type driverTestServer struct {
	handler     *DriverHandler
	drivers     *registry.DriverRegistry
	carRegistry *registry.CarRegistry
}

func newDriverTestServer() *driverTestServer {
	cars := dbtest.NewFakeCarCollection()
	drivers := dbtest.NewFakeDriverCollection()
	seq := dbtest.NewFakeSequence()
	keyed := locks.NewKeyed()

	driverRegistry := registry.NewDriverRegistry(drivers, seq)
	carRegistry := registry.NewCarRegistry(cars, drivers, seq, keyed)
	engine := assignment.NewEngine(drivers, cars, keyed)

	return &driverTestServer{
		handler:     NewDriverHandler(driverRegistry, engine),
		drivers:     driverRegistry,
		carRegistry: carRegistry,
	}
}

func (s *driverTestServer) seedDriver(t *testing.T, username string, status models.OnlineStatus) models.Driver {
	t.Helper()
	driver, err := s.drivers.Create(context.Background(), models.Driver{Username: username, Password: "secret"})
	require.NoError(t, err)
	if status == models.StatusOnline {
		patch := models.DriverPatch{OnlineStatus: &status}
		require.NoError(t, s.drivers.UpdatePartially(context.Background(), driver.ID, patch))
	}
	return *driver
}

func (s *driverTestServer) seedCar(t *testing.T, plate string, rating int) models.Car {
	t.Helper()
	car, err := s.carRegistry.Create(context.Background(), models.Car{
		LicensePlate: plate,
		Rating:       rating,
		EngineType:   models.EnginePetrol,
	})
	require.NoError(t, err)
	return *car
}

func selectCarRequest(driverID, carID int64) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/v1/drivers/1/cars/1", nil)
	req.SetPathValue("driverId", strconv.FormatInt(driverID, 10))
	req.SetPathValue("carId", strconv.FormatInt(carID, 10))
	return req
}

func TestDriverHandler_Get(t *testing.T) {
	srv := newDriverTestServer()
	driver := srv.seedDriver(t, "alice", models.StatusOffline)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/drivers/1", nil)
		req.SetPathValue("driverId", "1")
		w := httptest.NewRecorder()

		srv.handler.Get(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got models.Driver
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, driver.ID, got.ID)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/drivers/99", nil)
		req.SetPathValue("driverId", "99")
		w := httptest.NewRecorder()

		srv.handler.Get(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDriverHandler_SelectCar(t *testing.T) {
	t.Run("no content on success", func(t *testing.T) {
		srv := newDriverTestServer()
		driver := srv.seedDriver(t, "alice", models.StatusOnline)
		car := srv.seedCar(t, "B123", 4)

		w := httptest.NewRecorder()
		srv.handler.SelectCar(w, selectCarRequest(driver.ID, car.ID))

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("offline driver is a bad request", func(t *testing.T) {
		srv := newDriverTestServer()
		driver := srv.seedDriver(t, "alice", models.StatusOffline)
		car := srv.seedCar(t, "B123", 4)

		w := httptest.NewRecorder()
		srv.handler.SelectCar(w, selectCarRequest(driver.ID, car.ID))

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var msg ErrorMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
		assert.Equal(t, "only online drivers may select a car", msg.Message)
	})

	t.Run("taken car is a conflict", func(t *testing.T) {
		srv := newDriverTestServer()
		alice := srv.seedDriver(t, "alice", models.StatusOnline)
		bob := srv.seedDriver(t, "bob", models.StatusOnline)
		car := srv.seedCar(t, "B123", 4)

		w := httptest.NewRecorder()
		srv.handler.SelectCar(w, selectCarRequest(alice.ID, car.ID))
		require.Equal(t, http.StatusNoContent, w.Code)

		w = httptest.NewRecorder()
		srv.handler.SelectCar(w, selectCarRequest(bob.ID, car.ID))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown driver", func(t *testing.T) {
		srv := newDriverTestServer()
		car := srv.seedCar(t, "B123", 4)

		w := httptest.NewRecorder()
		srv.handler.SelectCar(w, selectCarRequest(99, car.ID))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDriverHandler_DeselectCar(t *testing.T) {
	srv := newDriverTestServer()
	driver := srv.seedDriver(t, "alice", models.StatusOnline)
	car := srv.seedCar(t, "B123", 4)

	w := httptest.NewRecorder()
	srv.handler.SelectCar(w, selectCarRequest(driver.ID, car.ID))
	require.Equal(t, http.StatusNoContent, w.Code)

	req := httptest.NewRequest(http.MethodDelete, "/v1/drivers/1/cars", nil)
	req.SetPathValue("driverId", strconv.FormatInt(driver.ID, 10))
	w = httptest.NewRecorder()

	srv.handler.DeselectCar(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	got, err := srv.drivers.Get(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CarID)
}

func TestDriverHandler_Find(t *testing.T) {
	srv := newDriverTestServer()
	srv.seedDriver(t, "alice", models.StatusOnline)
	srv.seedDriver(t, "bob", models.StatusOffline)
	deleted := srv.seedDriver(t, "carol", models.StatusOffline)
	require.NoError(t, srv.drivers.Delete(context.Background(), deleted.ID))

	t.Run("by online status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/drivers?onlinestatus=online", nil)
		w := httptest.NewRecorder()

		srv.handler.Find(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var drivers []models.Driver
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drivers))
		require.Len(t, drivers, 1)
		assert.Equal(t, "alice", drivers[0].Username)
	})

	t.Run("deleted drivers are hidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/drivers", nil)
		w := httptest.NewRecorder()

		srv.handler.Find(w, req)

		var drivers []models.Driver
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drivers))
		assert.Len(t, drivers, 2)
		for _, d := range drivers {
			assert.NotEqual(t, "carol", d.Username)
		}
	})

	t.Run("invalid online status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/drivers?onlinestatus=away", nil)
		w := httptest.NewRecorder()

		srv.handler.Find(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDriverHandler_Create(t *testing.T) {
	srv := newDriverTestServer()

	body, err := json.Marshal(models.Driver{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/internal/v1/drivers", bytes.NewBuffer(body))
	w := httptest.NewRecorder()

	srv.handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/internal/v1/drivers/1", w.Header().Get("Location"))

	var created models.Driver
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.StatusOffline, created.OnlineStatus)
}

func TestDriverHandler_Patch(t *testing.T) {
	srv := newDriverTestServer()
	driver := srv.seedDriver(t, "alice", models.StatusOffline)

	body := []byte(`{"coordinate": {"lat": 52.52, "lon": 13.405}}`)
	req := httptest.NewRequest(http.MethodPatch, "/internal/v1/drivers/1", bytes.NewBuffer(body))
	req.SetPathValue("driverId", strconv.FormatInt(driver.ID, 10))
	w := httptest.NewRecorder()

	srv.handler.Patch(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	got, err := srv.drivers.Get(context.Background(), driver.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Coordinate)
	assert.Equal(t, 52.52, got.Coordinate.Lat)
	assert.NotNil(t, got.CoordinateUpdatedAt)
}

func TestDriverHandler_ByCarRating(t *testing.T) {
	srv := newDriverTestServer()
	alice := srv.seedDriver(t, "alice", models.StatusOnline)
	srv.seedDriver(t, "bob", models.StatusOnline)
	car := srv.seedCar(t, "B123", 5)

	w := httptest.NewRecorder()
	srv.handler.SelectCar(w, selectCarRequest(alice.ID, car.ID))
	require.Equal(t, http.StatusNoContent, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/internal/v1/drivers/bycarrating/5", nil)
	req.SetPathValue("carRating", "5")
	w = httptest.NewRecorder()

	srv.handler.ByCarRating(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var drivers []models.Driver
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drivers))
	require.Len(t, drivers, 1)
	assert.Equal(t, "alice", drivers[0].Username)
}

func TestDriverHandler_ByLicensePlate(t *testing.T) {
	srv := newDriverTestServer()
	alice := srv.seedDriver(t, "alice", models.StatusOnline)
	car := srv.seedCar(t, "B123", 4)

	w := httptest.NewRecorder()
	srv.handler.SelectCar(w, selectCarRequest(alice.ID, car.ID))
	require.Equal(t, http.StatusNoContent, w.Code)

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/internal/v1/drivers/bylicenseplate/B123", nil)
		req.SetPathValue("licensePlate", "B123")
		w := httptest.NewRecorder()

		srv.handler.ByLicensePlate(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var driver models.Driver
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &driver))
		assert.Equal(t, alice.ID, driver.ID)
	})

	t.Run("unassigned plate", func(t *testing.T) {
		srv.seedCar(t, "C456", 3)

		req := httptest.NewRequest(http.MethodGet, "/internal/v1/drivers/bylicenseplate/C456", nil)
		req.SetPathValue("licensePlate", "C456")
		w := httptest.NewRecorder()

		srv.handler.ByLicensePlate(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
