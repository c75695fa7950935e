package model

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInvalidRange      = errors.New("end time must be after start time")
	ErrInThePast         = errors.New("start time must be in the future")
	ErrOverlap           = errors.New("slot overlaps an existing slot")
	ErrAlreadyBooked     = errors.New("slot is already booked")
	ErrSlotExpired       = errors.New("slot start time has passed")
	ErrInvalidTransition = errors.New("invalid consultation status transition")
	ErrConsultantClosed  = errors.New("consultant is not accepting bookings")
	ErrTimeout           = errors.New("store operation timed out")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// ValidationError names the field that failed validation so callers can
// surface it next to the offending input. It wraps one of the sentinel
// errors above for errors.Is checks.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps err with the offending field name.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}
