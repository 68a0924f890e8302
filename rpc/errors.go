package rpc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy defined in the protocol specification.
var (
	// ErrNoWorkers is returned synchronously by Submit when the fleet is empty.
	ErrNoWorkers = errors.New("rpc: no workers available")

	// ErrDuplicateID is returned synchronously by Submit when the
	// correlation id is already pending.
	ErrDuplicateID = errors.New("rpc: correlation id already pending")

	// ErrTimeout is delivered via the deferred handle when a pending
	// request's deadline elapses before a reply arrives.
	ErrTimeout = errors.New("rpc: request timed out")

	// ErrShutdown is delivered via the deferred handle for every request
	// still pending when the dispatcher is shut down.
	ErrShutdown = errors.New("rpc: dispatcher is shutting down")

	// ErrClosed is returned by Submit once the dispatcher has been shut down.
	ErrClosed = errors.New("rpc: already closed")
)

// Error is a structured error carrying a stable code and optional context,
// for callers that want to branch on failure kind without string matching.
type Error struct {
	Code    string
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("rpc %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("rpc %s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code, or the
// wrapped cause otherwise.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return errors.Is(e.Cause, target)
}

// WithContext attaches a key/value pair for diagnostics and returns e.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Error codes for the taxonomy in the protocol specification.
const (
	CodeNoWorkers      = "NO_WORKERS"
	CodeDuplicateID    = "DUPLICATE_ID"
	CodeTimeout        = "TIMEOUT"
	CodeShutdown       = "SHUTDOWN"
	CodeMalformedFrame = "MALFORMED_FRAME"
	CodeHandlerFault   = "HANDLER_FAULT"
)

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
