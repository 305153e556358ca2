package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrValidation marks input rejected before any write was attempted
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity marks a write rejected by a database constraint
	ErrIntegrity = errors.New("integrity violation")

	// ErrNotFound indicates a referenced row or resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupported indicates a file type or operation is not supported
	ErrUnsupported = errors.New("unsupported")

	// ErrCancelled is returned when the user declines a confirmation prompt
	ErrCancelled = errors.New("cancelled by user")
)
