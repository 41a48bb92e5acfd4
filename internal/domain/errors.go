package domain

import "errors"

// Every rejected transition maps to exactly one of these; callers branch with
// errors.Is and translate to transport-level responses.
var (
	// ErrNotFound referenced resource or booking does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden actor lacks permission for the requested transition.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInterval start >= end, or the start date is not in the future.
	ErrInvalidInterval = errors.New("invalid booking interval")

	// ErrConflict candidate interval overlaps an active booking on the resource.
	ErrConflict = errors.New("booking dates conflict with an existing booking")

	// ErrImmutableState modification or cancellation of an ongoing or past booking.
	ErrImmutableState = errors.New("booking can no longer be changed")

	// ErrVersionConflict optimistic version check failed on update.
	ErrVersionConflict = errors.New("booking was modified concurrently")
)
