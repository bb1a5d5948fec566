package asset

import "errors"

// Domain errors for the asset package, checked with errors.Is().
var (
	// ErrNotFound is returned when an asset does not exist.
	ErrNotFound = errors.New("asset: not found")

	// ErrExists is returned when creating an asset with an ID that already exists.
	ErrExists = errors.New("asset: already exists")

	// ErrInvalid is returned when asset validation fails.
	ErrInvalid = errors.New("asset: invalid")

	// ErrParentNotFound is returned when a referenced parent asset does not exist.
	ErrParentNotFound = errors.New("asset: parent not found")
)
