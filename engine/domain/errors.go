package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for validation failures.
var (
	ErrMissingField = errors.New("missing field")
	ErrInvalidField = errors.New("invalid field")
)

// ValidationError wraps a sentinel with the offending request field.
type ValidationError struct {
	Field   string
	Reason  string
	Wrapped error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Wrapped, ErrMissingField) {
		return "Missing field: " + e.Field
	}
	if e.Reason == "" {
		return "Invalid field: " + e.Field
	}
	return fmt.Sprintf("Invalid field: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// MissingField is shorthand for a ValidationError wrapping ErrMissingField.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Wrapped: ErrMissingField}
}

// InvalidField reports a present but unusable request field.
func InvalidField(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Wrapped: ErrInvalidField}
}

// UpstreamError reports a non-success response from a collaborator service.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Service, e.Body)
}

// HTTPStatus returns the collaborator status when it is a usable error code,
// otherwise 500.
func (e *UpstreamError) HTTPStatus() int {
	if e.Status >= 400 && e.Status <= 599 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// IsOutage reports whether err says the collaborator itself is unhealthy.
// Upstream 4xx replies are answers to a bad request, not outages.
func IsOutage(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status >= http.StatusInternalServerError || ue.Status < http.StatusBadRequest
	}
	return true
}
