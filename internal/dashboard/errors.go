package dashboard

import "errors"

// Domain errors for the dashboard package, checked with errors.Is().
var (
	// ErrNotFound is returned when a dashboard does not exist.
	ErrNotFound = errors.New("dashboard: not found")

	// ErrExists is returned when creating a dashboard with an ID that already exists.
	ErrExists = errors.New("dashboard: already exists")

	// ErrInvalid is returned when dashboard validation fails.
	ErrInvalid = errors.New("dashboard: invalid")
)
