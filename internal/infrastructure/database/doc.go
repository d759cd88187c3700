// Package database provides the SQLite store behind the IR climate service.
//
// It owns the connection (WAL mode, busy timeout, single writer) and applies
// the embedded schema migrations that hold persisted climate state and its
// history.
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are named YYYYMMDD_HHMMSS_description.{up,down}.sql and are
// applied oldest first, one transaction each.
package database
