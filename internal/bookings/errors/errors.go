package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	// ErrStatusChanged is returned when a conditional status write finds a
	// different status than the one it was based on.
	ErrStatusChanged = errors.New("appointment status changed concurrently")

	ErrInvalidTimeRange = errors.New("end time must be after start time")

	ErrLockHeld = errors.New("slot lock is held by another booking")
)
