package kafka

import "errors"

var (
	ErrProducerClosed = errors.New("kafka producer is closed")

	ErrEmptyKey   = errors.New("message key cannot be empty")
	ErrEmptyValue = errors.New("message value cannot be empty")

	// ErrMissingEventType is returned by Build; consumers route on the event-type header.
	ErrMissingEventType = errors.New("message has no event type")
)
