package handlers

import (
	"net/http"

	"github.com/fleetops/fleet-dispatch/internal/middleware"
)

// NewRouter wires all handlers onto a mux. The public /v1 surface requires a
// valid token, the /internal surface additionally requires the admin role.
func NewRouter(authHandler *AuthHandler, carHandler *CarHandler, driverHandler *DriverHandler, authMW *middleware.AuthMiddleware, rateMW *middleware.RateLimitMiddleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)

	mux.HandleFunc("GET /v1/cars", carHandler.List)
	mux.HandleFunc("POST /v1/cars", carHandler.Create)
	mux.HandleFunc("GET /v1/cars/{carId}", carHandler.Get)
	mux.HandleFunc("PUT /v1/cars/{carId}", carHandler.Update)
	mux.HandleFunc("DELETE /v1/cars/{carId}", carHandler.Delete)

	mux.HandleFunc("GET /v1/drivers/{driverId}", driverHandler.Get)
	mux.HandleFunc("PUT /v1/drivers/{driverId}/car/{carId}", driverHandler.SelectCar)
	mux.HandleFunc("DELETE /v1/drivers/{driverId}/car", driverHandler.DeselectCar)

	internal := http.NewServeMux()
	internal.HandleFunc("GET /internal/v1/drivers", driverHandler.Find)
	internal.HandleFunc("POST /internal/v1/drivers", driverHandler.Create)
	internal.HandleFunc("DELETE /internal/v1/drivers/{driverId}", driverHandler.Delete)
	internal.HandleFunc("PATCH /internal/v1/drivers/{driverId}", driverHandler.Patch)
	internal.HandleFunc("GET /internal/v1/cars/rating/{carRating}/drivers", driverHandler.ByCarRating)
	internal.HandleFunc("GET /internal/v1/cars/licenseplate/{licensePlate}/drivers", driverHandler.ByLicensePlate)
	mux.Handle("/internal/", authMW.RequireAdmin(internal))

	return rateMW.RateLimit(100, 60)(authMW.Authenticate(mux))
}
