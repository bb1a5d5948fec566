package schema

import "errors"

// Domain errors for the schema package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, schema.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a schema does not exist.
	ErrNotFound = errors.New("schema: not found")

	// ErrExists is returned when creating a schema with an ID that already exists.
	ErrExists = errors.New("schema: already exists")

	// ErrInvalid is returned when schema validation fails.
	ErrInvalid = errors.New("schema: invalid")
)
