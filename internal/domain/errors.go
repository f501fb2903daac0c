package domain

import "fmt"

// Error types for consistent error handling across the hub BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnknownSection indicates a section key that is not in the catalog.
type ErrUnknownSection struct {
	Section string
}

func (e *ErrUnknownSection) Error() string {
	return fmt.Sprintf("unknown section: %s", e.Section)
}

// ErrExternalService indicates a transport failure talking to the household backend.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrApplication is a backend envelope with status != 1.
// Message is the user-facing reason reported by the backend, or a fallback.
type ErrApplication struct {
	Status  int
	Message string
}

func (e *ErrApplication) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend rejected the request (status %d)", e.Status)
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input). It is raised before
// anything is sent to the backend.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates a missing or invalid bearer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConfirmationRequired is returned when a destructive action was not confirmed.
type ErrConfirmationRequired struct {
	Action string
}

func (e *ErrConfirmationRequired) Error() string {
	return fmt.Sprintf("confirmation required: %s", e.Action)
}
