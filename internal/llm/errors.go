package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the provider answered successfully but
// the reply contained no text.
var ErrEmptyResponse = errors.New("empty completion response")

// StatusError is a non-success HTTP response from a provider.
// Callers use errors.As to get at the status code and decide whether the
// failure is worth retrying.
type StatusError struct {
	Provider   string
	StatusCode int
	Code       string // provider error code, e.g. "insufficient_quota"; may be empty
	Err        error
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: status %d (%s): %v", e.Provider, e.StatusCode, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}
