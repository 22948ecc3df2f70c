package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"teamhealth/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error is the body of every failed JSON request
type Error struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Error{Error: message})
}

// statusFor maps a service error to the HTTP status it is reported with
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNoRatingSelected), errors.Is(err, model.ErrInvalidRating):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, model.ErrSubmissionInFlight):
		return http.StatusConflict
	case errors.Is(err, model.ErrSubmissionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		log.Printf("[HTTP] %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, err.Error())
}
