package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fleetops/fleet-dispatch/internal/apperrors"
	"github.com/fleetops/fleet-dispatch/internal/models"
	"github.com/fleetops/fleet-dispatch/internal/registry"
)

// CarHandler handles car CRUD and lookup requests
type CarHandler struct {
	cars *registry.CarRegistry
}

// NewCarHandler creates a new car handler
func NewCarHandler(cars *registry.CarRegistry) *CarHandler {
	return &CarHandler{cars: cars}
}

// List returns all cars, or the subset matching the rating or licenseplate
// query parameter.
func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	if plate := r.URL.Query().Get("licenseplate"); plate != "" {
		car, err := h.cars.GetByLicensePlate(r.Context(), plate)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, []models.Car{*car})
		return
	}

	if ratingStr := r.URL.Query().Get("rating"); ratingStr != "" {
		rating, err := strconv.Atoi(ratingStr)
		if err != nil {
			writeError(w, r, apperrors.ConstraintViolation("rating must be an integer"))
			return
		}
		cars, err := h.cars.FindByRating(r.Context(), rating)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cars)
		return
	}

	cars, err := h.cars.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

// Get returns a single car by id.
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "carId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	car, err := h.cars.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// Create registers a new car and answers with its resource location.
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var car models.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		writeError(w, r, apperrors.ConstraintViolation("invalid JSON"))
		return
	}

	created, err := h.cars.Create(r.Context(), car)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/cars/%d", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

// Update replaces a car by id.
func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "carId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var car models.Car
	if err := json.NewDecoder(r.Body).Decode(&car); err != nil {
		writeError(w, r, apperrors.ConstraintViolation("invalid JSON"))
		return
	}

	if err := h.cars.Update(r.Context(), id, car); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a car by id.
func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "carId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.cars.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses a numeric path segment.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, apperrors.ConstraintViolation("%s must be a number", name)
	}
	return id, nil
}
