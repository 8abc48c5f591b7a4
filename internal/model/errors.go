package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrEventCancelled        = errors.New("event is cancelled")
	ErrDuplicateRegistration = errors.New("email is already registered for this event")
	ErrCapacityExceeded      = errors.New("not enough capacity")
	ErrConflict              = errors.New("conflict")
	ErrConfiguration         = errors.New("invalid configuration")
	ErrNotificationDelivery  = errors.New("notification delivery failed")
)

// CapacityError reports how many places were left when a registration was
// rejected. It matches ErrCapacityExceeded with errors.Is.
type CapacityError struct {
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough capacity: %d requested, %d available", e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// ValidationError wraps a request validation failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
