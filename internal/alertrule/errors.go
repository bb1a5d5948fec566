package alertrule

import "errors"

// Domain errors for the alertrule package, checked with errors.Is().
var (
	// ErrNotFound is returned when an alert rule does not exist.
	ErrNotFound = errors.New("alertrule: not found")

	// ErrExists is returned when creating an alert rule with an ID that already exists.
	ErrExists = errors.New("alertrule: already exists")

	// ErrInvalid is returned when alert rule validation fails.
	ErrInvalid = errors.New("alertrule: invalid")

	// ErrEmptyCondition is returned when a rule has no condition defined.
	ErrEmptyCondition = errors.New("alertrule: empty condition")
)
