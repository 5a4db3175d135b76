package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studentdesk/frontdesk/internal/auth"
	"github.com/studentdesk/frontdesk/internal/deskapi"
	"github.com/studentdesk/frontdesk/internal/studentsync"
	"github.com/studentdesk/frontdesk/internal/validation"
	"github.com/studentdesk/frontdesk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{validation.NewFieldError("phone", "phone must be exactly 10 digits"), http.StatusBadRequest},
		{deskapi.ErrMissingToken, http.StatusUnauthorized},
		{auth.ErrInvalidRole, http.StatusForbidden},
		{auth.ErrInFlight, http.StatusConflict},
		{fmt.Errorf("%w: s9", studentsync.ErrUnknownStudent), http.StatusNotFound},
		{&deskapi.HTTPError{Message: "Invalid credentials", Status: 401}, http.StatusUnauthorized},
		{&deskapi.HTTPError{Message: "Failed to fetch students", Status: 500}, http.StatusBadGateway},
		{&deskapi.NetworkError{Op: "GET /", Err: errors.New("refused")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorStatus(tt.err))
		})
	}
}

func TestHandleErrResponse(t *testing.T) {
	w := httptest.NewRecorder()
	HandleErrResponse(w, validation.NewFieldError("phone", "phone must be exactly 10 digits"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "phone must be exactly 10 digits", body.Message)
	assert.Equal(t, map[string]string{"phone": "phone must be exactly 10 digits"}, body.Fields)
}

func TestErrorBodyJoined(t *testing.T) {
	err := errors.Join(&deskapi.HTTPError{Message: "Failed to allocate man", Status: 500}, errors.New("refresh failed"))
	assert.Equal(t, "Failed to allocate man", ErrorBody(err).Message)
	assert.Equal(t, http.StatusBadGateway, ErrorStatus(err))
}
