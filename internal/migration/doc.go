// Package migration implements the configuration package engine: exporting
// a coherent bundle of tenant resources (schemas, device types, dashboards,
// alert rules, assets) into a portable package, validating a package's
// structural and referential integrity, and importing it into another
// tenant while re-establishing every cross-reference.
//
// Inside a package, resources reference each other through package-scoped
// local identifiers. Export rewrites real identifiers to local ones;
// Import resolves them back through an identifier map populated as each
// resource is written, processing resources in dependency order so every
// downstream reference can be satisfied. Name collisions in the target
// tenant are resolved by a per-import conflict policy (Skip, Overwrite,
// Rename).
//
// The engine owns no storage: it operates through narrow store interfaces
// implemented by the resource repositories.
package migration
