package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperator is returned for an operator outside the supported set.
	ErrUnknownOperator = errors.New("unknown filter operator")
	// ErrInvalidFilter is returned when a filter item cannot be compiled.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidGlobalOperator is returned for anything other than AND / OR.
	ErrInvalidGlobalOperator = errors.New("invalid global operator")
	// ErrUnknownEntityType is returned when no entity manager is registered for a type.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrInconsistentPaging is returned when the backend stops returning rows
	// before the reported total is reached.
	ErrInconsistentPaging = errors.New("backend returned an empty page before reaching the reported count")
)

// BackendError wraps any failure talking to the search backend.
type BackendError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search backend %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err unless it already is a BackendError.
func NewBackendError(op string, err error) error {
	if err == nil {
		return nil
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}
