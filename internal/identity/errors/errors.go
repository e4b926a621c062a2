package errors

import "errors"

var (
	ErrDuplicateCustomer = errors.New("customer with this phone or email already exists")

	ErrInvalidContact = errors.New("contact has neither phone nor email")
)
