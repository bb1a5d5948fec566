package devicetype

import "errors"

// Domain errors for the devicetype package, checked with errors.Is().
var (
	// ErrNotFound is returned when a device type does not exist.
	ErrNotFound = errors.New("devicetype: not found")

	// ErrExists is returned when creating a device type with an ID that already exists.
	ErrExists = errors.New("devicetype: already exists")

	// ErrInvalid is returned when device type validation fails.
	ErrInvalid = errors.New("devicetype: invalid")
)
