// Package apperr classifies failures of the ingestion pipeline so the HTTP
// edge can pick a status code without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a record lookup by id finds nothing.
var ErrNotFound = errors.New("not found")

// Validation reports bad client input. It is always raised before any
// external call is attempted.
type Validation struct {
	Message string
}

func (e *Validation) Error() string { return e.Message }

// Invalid builds a Validation error with a formatted message.
func Invalid(format string, args ...any) *Validation {
	return &Validation{Message: fmt.Sprintf(format, args...)}
}

// Policy reports a request rejected by the bucket policy.
type Policy struct {
	Message string
}

func (e *Policy) Error() string { return e.Message }

// Upstream wraps a failure reported by an external service (object storage
// or the optimizer). Code and Message are the service's own values.
type Upstream struct {
	Service string
	Code    string
	Message string
	// Status is the HTTP status the call path surfaces this failure with.
	Status int
	Err    error
}

func (e *Upstream) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s error %s: %s", e.Service, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s error: %s", e.Service, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Service, e.Err)
	default:
		return e.Service + " error"
	}
}

func (e *Upstream) Unwrap() error { return e.Err }

// WithStatus returns a copy of e that surfaces with the given status.
func (e *Upstream) WithStatus(status int) *Upstream {
	c := *e
	c.Status = status
	return &c
}

// Status maps err to the HTTP status and client-facing message. Unknown
// errors map to a generic 500 so internals never leak.
func Status(err error) (int, string) {
	var (
		validation *Validation
		policy     *Policy
		upstream   *Upstream
	)
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &policy):
		return http.StatusBadRequest, policy.Message
	case errors.As(err, &upstream):
		status := upstream.Status
		if status == 0 {
			status = http.StatusBadGateway
		}
		return status, err.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// Kind names the error class for metrics labels.
func Kind(err error) string {
	var (
		validation *Validation
		policy     *Policy
		upstream   *Upstream
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &policy):
		return "policy"
	case errors.As(err, &upstream):
		return "upstream"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
