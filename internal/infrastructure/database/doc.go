// Package database provides the SQLite connection behind the preference store.
//
// Open configures WAL mode and a busy timeout, and Migrate applies the schema
// from an fs.FS of numbered .up.sql/.down.sql files (see package migrations).
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
