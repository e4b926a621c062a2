package errors

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")

	ErrServiceNotFound = errors.New("service not found")

	ErrInvalidID = errors.New("invalid directory ID format")
)
