// Package database provides the SQLite connection shared by the selection
// store and the lifecycle journal.
//
// The connection runs in WAL mode with a busy timeout and a single writer.
// Schema changes are embedded migrations (see the migrations package),
// applied in version order by Migrate:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive. Each version has an .up.sql and a .down.sql file.
package database
