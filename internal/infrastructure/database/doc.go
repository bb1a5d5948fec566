// Package database manages the SQLite connection and schema migrations
// for GridPoint Core.
//
// It wraps database/sql with WAL-mode pragmas tuned for SQLite's
// single-writer model, and applies embedded, versioned migrations at
// startup. Migration files live in the top-level migrations package and
// are compiled into the binary via go:embed.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "./data/gridpoint.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Thread Safety: the DB wrapper is safe for concurrent use; the underlying
// pool is limited to one connection to match SQLite's writer model.
package database
