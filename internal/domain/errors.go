package domain

import "errors"

var (
	// ErrDuplicateKey is returned when registering a progress key that already exists.
	ErrDuplicateKey = errors.New("progress key already registered")

	// ErrUnknownKey is returned when reading or updating a key that was never
	// registered or has expired from the store.
	ErrUnknownKey = errors.New("unknown progress key")

	// ErrAlreadyTerminal is returned when updating a record past its terminal state.
	ErrAlreadyTerminal = errors.New("progress record already terminal")

	// ErrInvalidState is returned when a record or patch carries an unknown lifecycle state.
	ErrInvalidState = errors.New("invalid progress state")

	// ErrInvalidRecord is returned when a record violates the error-iff-failed invariant.
	ErrInvalidRecord = errors.New("error message only allowed on FAILED records")

	// ErrEmptyJobType is returned when a submission has no job type.
	ErrEmptyJobType = errors.New("job type cannot be empty")

	// ErrUnknownJobType is returned when no handler is registered for a job type.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrPayloadTooLarge is returned when the submission payload exceeds the size limit.
	ErrPayloadTooLarge = errors.New("job payload exceeds maximum size")

	// ErrPublishFailed is returned when the message broker publish fails.
	ErrPublishFailed = errors.New("failed to publish job to message queue")
)
