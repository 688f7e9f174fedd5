package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fleetops/fleet-dispatch/internal/apperrors"
	"github.com/fleetops/fleet-dispatch/internal/assignment"
	"github.com/fleetops/fleet-dispatch/internal/models"
	"github.com/fleetops/fleet-dispatch/internal/registry"
)

// DriverHandler handles driver requests: the public surface (lookup and car
// selection) and the internal one (management and cross-registry queries).
type DriverHandler struct {
	drivers *registry.DriverRegistry
	engine  *assignment.Engine
}

// NewDriverHandler creates a new driver handler
func NewDriverHandler(drivers *registry.DriverRegistry, engine *assignment.Engine) *DriverHandler {
	return &DriverHandler{drivers: drivers, engine: engine}
}

// Get returns a single driver by id.
func (h *DriverHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "driverId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	driver, err := h.drivers.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}

// SelectCar assigns a car to a driver.
func (h *DriverHandler) SelectCar(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathID(r, "driverId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	carID, err := pathID(r, "carId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.engine.SelectCar(r.Context(), driverID, carID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeselectCar releases a driver's car.
func (h *DriverHandler) DeselectCar(w http.ResponseWriter, r *http.Request) {
	driverID, err := pathID(r, "driverId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.engine.DeselectCar(r.Context(), driverID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Find lists drivers filtered by the optional username and onlinestatus
// query parameters. Soft-deleted drivers are hidden here, not in the
// registry: internal callers of the registry need them.
func (h *DriverHandler) Find(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	var status *models.OnlineStatus
	if statusStr := r.URL.Query().Get("onlinestatus"); statusStr != "" {
		s := models.OnlineStatus(strings.ToUpper(statusStr))
		if !models.IsValidOnlineStatus(s) {
			writeError(w, r, apperrors.ConstraintViolation("online status %q is not one of ONLINE, OFFLINE", statusStr))
			return
		}
		status = &s
	}

	drivers, err := h.drivers.Find(r.Context(), username, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.FilterDeleted(drivers))
}

// Create registers a new driver and answers with its resource location.
func (h *DriverHandler) Create(w http.ResponseWriter, r *http.Request) {
	var driver models.Driver
	if err := json.NewDecoder(r.Body).Decode(&driver); err != nil {
		writeError(w, r, apperrors.ConstraintViolation("invalid JSON"))
		return
	}

	created, err := h.drivers.Create(r.Context(), driver)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/internal/v1/drivers/%d", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

// Delete soft-deletes a driver.
func (h *DriverHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "driverId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.drivers.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Patch applies a partial update to a driver.
func (h *DriverHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "driverId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var patch models.DriverPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, r, apperrors.ConstraintViolation("invalid JSON"))
		return
	}

	if err := h.drivers.UpdatePartially(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ByCarRating lists the drivers assigned to cars with the given rating.
func (h *DriverHandler) ByCarRating(w http.ResponseWriter, r *http.Request) {
	rating, err := pathID(r, "carRating")
	if err != nil {
		writeError(w, r, err)
		return
	}

	drivers, err := h.engine.FindDriversByCarRating(r.Context(), int(rating))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registry.FilterDeleted(drivers))
}

// ByLicensePlate returns the driver assigned to the car with the given plate.
func (h *DriverHandler) ByLicensePlate(w http.ResponseWriter, r *http.Request) {
	plate := r.PathValue("licensePlate")

	driver, err := h.engine.FindDriverByLicensePlate(r.Context(), plate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, driver)
}
