// Package database provides SQLite persistence for OnAir Core.
//
// This package manages:
//   - Opening the SQLite database with WAL mode and busy-timeout handling
//   - Embedded schema migrations (registered by the migrations package)
//   - Connection health checks
//
// SQLite is deliberate: the core is a single-writer system (all mutations
// are serialised per entity by the lock manager), rundown volumes are small,
// and an embedded store keeps the playout chain free of external database
// dependencies during a broadcast.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/onair.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
