package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/fleetops/fleet-dispatch/internal/apperrors"
)

// ErrorMessage is the body returned for every failed request.
type ErrorMessage struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the typed error kinds onto HTTP statuses. Internal errors
// keep their cause in the log, never in the response body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindConstraintViolation, apperrors.KindInvalidState:
		status = http.StatusBadRequest
	case apperrors.KindConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	entry := log.WithFields(log.Fields{"path": r.URL.Path, "status": status})
	if status == http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
		writeJSON(w, status, ErrorMessage{Message: "internal server error"})
		return
	}
	entry.Warn(err.Error())
	writeJSON(w, status, ErrorMessage{Message: err.Error()})
}
