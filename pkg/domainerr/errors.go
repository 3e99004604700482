// Package domainerr provides coded domain errors.
//
// Services return these so transports can translate them into protocol
// responses without inspecting error strings. Infrastructure layers return
// sentinel errors (pkg/platform/sentinel) instead; services translate.
package domainerr

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for callers and transports.
type Code string

const (
	// CodeInvalidTransition is returned when a requested document state
	// transition is absent from the transition table.
	CodeInvalidTransition Code = "INVALID_TRANSITION"

	// CodeForbidden is returned when the actor's role does not permit the
	// requested operation.
	CodeForbidden Code = "FORBIDDEN"

	// CodeConflict is returned on optimistic version mismatch. It is the only
	// code the service layer is expected to retry automatically.
	CodeConflict Code = "CONFLICT"

	// CodeValidation is returned for malformed input such as an override
	// reason that is too short. Missing rule input is NOT an error; it is
	// reported as a failed rule result.
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeGenerationInProgress is returned when an audit pack generation is
	// requested while another generation for the same shipment is in flight.
	CodeGenerationInProgress Code = "GENERATION_IN_PROGRESS"

	// CodeSigningFailed is returned when the signing or timestamping
	// collaborator fails or times out during audit pack generation.
	CodeSigningFailed Code = "SIGNING_FAILED"

	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL"
)

// Error is a coded domain error. It never exposes storage or signing provider
// internals in its message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error while keeping the
// cause reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in the domain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
