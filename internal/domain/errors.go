package domain

import "fmt"

// ValidationError signals bad or missing input, detected before any external
// call or write.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidStateError signals an operation that is not legal for the current
// order or payment state.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

func InvalidStatef(format string, args ...any) error {
	return &InvalidStateError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// GatewayCause is one provider-side error code, kept for diagnostics.
type GatewayCause struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// GatewayError wraps any failure talking to the external payment provider:
// transport errors, timeouts, and non-2xx responses alike.
type GatewayError struct {
	Op         string
	StatusCode int
	Causes     []GatewayCause
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("payment gateway: %s: status %d", e.Op, e.StatusCode)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// PersistenceError wraps a store write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
