package cms

import (
	"errors"
	"fmt"
)

// ErrFetchFailed is wrapped by every error returned from a content fetch.
// Callers that only need to show a retry affordance test for this alone.
var ErrFetchFailed = errors.New("content fetch failed")

// ErrNotFound is returned when a detail lookup matches no record.
var ErrNotFound = errors.New("content not found")

// NetworkError means the request never completed.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("cms %s: network error: %v", e.Endpoint, e.Err)
}

// Unwrap exposes both the fetch-failed sentinel and the transport cause.
func (e *NetworkError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }

// ServerError means the backend answered with a non-2xx status.
type ServerError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cms %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("cms %s: status %d", e.Endpoint, e.StatusCode)
}

// Unwrap returns ErrFetchFailed.
func (e *ServerError) Unwrap() error { return ErrFetchFailed }

// DecodeError means the response body did not have the expected shape.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cms %s: unexpected response: %v", e.Endpoint, e.Err)
}

// Unwrap exposes both the fetch-failed sentinel and the decode cause.
func (e *DecodeError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }
