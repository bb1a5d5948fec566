package migration

import "errors"

// Domain errors for the migration package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, migration.ErrPackageInvalid) {
//	    // surface the validation result to the caller
//	}
var (
	// ErrNilPackage is returned when a nil package is passed to Validate,
	// Import or Preview.
	ErrNilPackage = errors.New("migration: nil package")

	// ErrPackageInvalid is returned by Import when the package fails
	// structural or referential validation. Validation errors always block
	// the whole import; warnings never do.
	ErrPackageInvalid = errors.New("migration: package failed validation")

	// ErrInvalidPolicy is returned when an unknown conflict policy is
	// requested.
	ErrInvalidPolicy = errors.New("migration: invalid conflict policy")

	// ErrNameRequired is returned by Export when the package metadata has
	// no name.
	ErrNameRequired = errors.New("migration: package name required")
)
