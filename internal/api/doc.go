// Package api provides the HTTP REST API for the GridPoint platform's
// configuration migration engine.
//
// It exposes tenant-scoped endpoints to export resources into a portable
// package, preview and import a package into another tenant, and a
// tenant-free endpoint to validate a package document.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
