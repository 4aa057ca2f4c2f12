// Package database opens the SQLite file that holds relay send history and
// applies its schema migrations.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are forward-only at runtime; each YYYYMMDD_HHMMSS_name.up.sql has a
// matching .down.sql for manual rollback.
package database
