// Package logging provides structured logging for GridPoint Core.
//
// It wraps the standard library log/slog with configuration-driven
// format and level selection, plus default service/version attributes
// on every record.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("import complete", "tenant", tenantID, "schemas", n)
//
//	apiLog := log.With("component", "api")
package logging
