package deskapi

import (
	"errors"
	"fmt"
)

// ErrMissingToken is returned by data operations called without a session token.
var ErrMissingToken = errors.New("missing session token")

// HTTPError is a non-2xx response from the student API.
type HTTPError struct {
	Message string
	Status  int
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NetworkError is a request that produced no response at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Message converts any client error into the text shown to the user.
func Message(err error) string {
	var httpErr *HTTPError
	var netErr *NetworkError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.As(err, &netErr):
		return "Unable to reach the server, please try again"
	case errors.Is(err, ErrMissingToken):
		return "You are not logged in"
	default:
		return err.Error()
	}
}
