package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("conflict")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Validation failures. Each wraps ErrInvalidInput.
var (
	ErrMissingIdentifier      = fmt.Errorf("%w: missing external identifier", ErrInvalidInput)
	ErrMissingRegion          = fmt.Errorf("%w: region is required", ErrInvalidInput)
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	ErrInvalidInstallmentPlan = fmt.Errorf("%w: installments above one require credit", ErrInvalidInput)
	ErrIncompleteSubmission   = fmt.Errorf("%w: incomplete submission", ErrInvalidInput)
)

// Conflicts the operator can act on. Each wraps ErrConflict.
var (
	ErrInsufficientStock  = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrNoAccountAvailable = fmt.Errorf("%w: no account available for settlement", ErrConflict)
	ErrInvalidTransition  = fmt.Errorf("%w: invalid status transition", ErrConflict)
)
