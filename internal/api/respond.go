package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"rescuegrid/internal/auth"
	"rescuegrid/internal/geocell"
	"rescuegrid/internal/rescue"
)

var errInvalidBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto the HTTP statuses the
// original API used. Unknown errors are surfaced as a generic 500; the
// caller logs the details.
func writeDomainError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, geocell.ErrInvalidCoordinate):
		return writeError(w, http.StatusBadRequest, "invalid latitude/longitude")
	case errors.Is(err, rescue.ErrInvalidState):
		return writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, rescue.ErrForbidden):
		return writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, rescue.ErrNotFound):
		return writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		return writeError(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, auth.ErrUserNotFound):
		return writeError(w, http.StatusNotFound, "user_not_found")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return writeError(w, http.StatusBadRequest, "invalid_credentials")
	case errors.Is(err, auth.ErrInvalidOTP):
		return writeError(w, http.StatusBadRequest, "INVALID_OR_EXPIRED_OTP")
	default:
		return writeError(w, http.StatusInternalServerError, "server_error")
	}
}
