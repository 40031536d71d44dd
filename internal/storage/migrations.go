package storage

import (
	_ "embed"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// RunMigrations executes the database schema and any necessary migrations.
// This function is idempotent and safe to run multiple times.
func RunMigrations(db *sqlx.DB) error {
	_, err := db.Exec(schemaSQL)
	if err != nil {
		return errors.Wrap(err, "applying schema")
	}

	// Migration: Add excerpt column to Referral if it doesn't exist. Early
	// databases stored bare edges without display context.
	var colExists int
	err = db.Get(&colExists, `SELECT COUNT(*) FROM pragma_table_info('Referral') WHERE name = 'excerpt'`)
	if err != nil {
		return errors.Wrap(err, "checking Referral.excerpt")
	}
	if colExists == 0 {
		_, err = db.Exec(`ALTER TABLE Referral ADD COLUMN excerpt TEXT NOT NULL DEFAULT ''`)
		if err != nil {
			return errors.Wrap(err, "adding Referral.excerpt")
		}
	}

	// Migration: Add row_version column to Revision if it doesn't exist.
	// Databases created before optimistic concurrency checks lack it.
	err = db.Get(&colExists, `SELECT COUNT(*) FROM pragma_table_info('Revision') WHERE name = 'row_version'`)
	if err != nil {
		return errors.Wrap(err, "checking Revision.row_version")
	}
	if colExists == 0 {
		_, err = db.Exec(`ALTER TABLE Revision ADD COLUMN row_version INTEGER NOT NULL DEFAULT 0`)
		if err != nil {
			return errors.Wrap(err, "adding Revision.row_version")
		}
	}

	return nil
}
