package models

// ErrorResponse is the error body used by the student API and by the dashboard JSON endpoints.
type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
