package apiclient

import (
	"fmt"
	"net/http"
)

// Outcome is the result of one client call.
//
// On success Data and StatusCode are set and Error is empty.
// On failure Error and StatusCode are set and Data is the zero value.
type Outcome[T any] struct {
	Success    bool   `json:"success"`
	Data       T      `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status"`

	// Attempts is the number of attempts made, the first one included.
	Attempts int `json:"attempts"`
}

// Failed reports whether the call failed.
func (o Outcome[T]) Failed() bool {
	return !o.Success
}

// TimedOut reports whether the call failed because its deadline expired.
func (o Outcome[T]) TimedOut() bool {
	return !o.Success && o.StatusCode == http.StatusRequestTimeout
}

// Err returns nil on success and an error describing the failure otherwise.
func (o Outcome[T]) Err() error {
	if o.Success {
		return nil
	}
	return &CallError{StatusCode: o.StatusCode, Message: o.Error}
}

// CallError is the error form of a failed Outcome, for callers that prefer error returns.
type CallError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("backend call failed (status %d): %s", e.StatusCode, e.Message)
}

// unknownError is reported when a call failed without recording any error.
const unknownError = "unknown error"

func succeeded[T any](data T, status, attempts int) Outcome[T] {
	return Outcome[T]{Success: true, Data: data, StatusCode: status, Attempts: attempts}
}

func failed[T any](message string, status, attempts int) Outcome[T] {
	if message == "" {
		message = unknownError
	}
	return Outcome[T]{Error: message, StatusCode: status, Attempts: attempts}
}

// DecodeError reports a 2xx response whose body is not valid JSON for the target type.
// It is never retried.
type DecodeError struct {
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response (status %d): %v", e.StatusCode, e.Err)
}

// Unwrap returns the underlying decoding error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
