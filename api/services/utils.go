package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/studentdesk/frontdesk/internal/auth"
	"github.com/studentdesk/frontdesk/internal/deskapi"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/internal/validation"
	"github.com/studentdesk/frontdesk/models"
)

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// Polling clients must always see the current list
	w.Header().Set("Cache-Control", "no-store")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
	}
}

// ErrorStatus maps an error to the status code returned to the browser.
func ErrorStatus(err error) int {
	var vErr *validation.ValidationError
	var httpErr *deskapi.HTTPError
	var netErr *deskapi.NetworkError

	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, deskapi.ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrInvalidRole):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, studentsync.ErrUnknownStudent):
		return http.StatusNotFound
	case errors.As(err, &httpErr):
		if httpErr.Status >= 400 && httpErr.Status < 500 {
			return httpErr.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody converts an error into the message shown to the user.
func ErrorBody(err error) models.ErrorResponse {
	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		return models.ErrorResponse{Message: vErr.Error(), Fields: vErr.FieldMap()}
	}
	return models.ErrorResponse{Message: deskapi.Message(firstError(err))}
}

// HandleErrResponse writes err as a JSON error response.
func HandleErrResponse(w http.ResponseWriter, err error) {
	WriteResponse(w, ErrorStatus(err), ErrorBody(err))
}

// firstError unwraps errors.Join results to the first error.
func firstError(err error) error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return err
}
