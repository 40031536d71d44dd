package storage

import (
	"github.com/jmoiron/sqlx"
	"github.com/mirrorwell/pagestore/wiki"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// currentRevisionWhere selects the current revision of the page bound to the
// first placeholder: no forward pointer, not deleted. When degenerate data
// leaves more than one candidate, the highest revision number wins, so every
// query using this fragment must order by revision DESC.
const currentRevisionWhere = `page_name = ? AND next_id = 0 AND deleted = 0`

// revisionColumns is the scan list shared by every revision query.
const revisionColumns = `id, page_name, revision, markup, minor_edit, message, author, created, deleted, next_id, row_version`

// PreparedStatements holds the prepared SQL statements used for hot-path
// reads. Exported for reuse in test utilities.
type PreparedStatements struct {
	SelectCurrentStmt            *sqlx.Stmt
	SelectCurrentWithDeletedStmt *sqlx.Stmt
	SelectByNumberStmt           *sqlx.Stmt
	SelectByIDStmt               *sqlx.Stmt
}

// InitializeStatements prepares the hot-path read statements.
func InitializeStatements(conn *sqlx.DB) (*PreparedStatements, error) {
	stmts := &PreparedStatements{}
	var err error

	q := `SELECT ` + revisionColumns + ` FROM Revision WHERE `

	stmts.SelectCurrentStmt, err = conn.Preparex(q + currentRevisionWhere + ` ORDER BY revision DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}

	stmts.SelectCurrentWithDeletedStmt, err = conn.Preparex(q + `page_name = ? AND next_id = 0 ORDER BY revision DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}

	stmts.SelectByNumberStmt, err = conn.Preparex(q + `page_name = ? AND revision = ? AND deleted = 0`)
	if err != nil {
		return nil, err
	}

	stmts.SelectByIDStmt, err = conn.Preparex(q + `id = ?`)
	if err != nil {
		return nil, err
	}

	return stmts, nil
}

// sqliteDb implements the page and referral repositories. Methods are defined
// in separate files:
//   - page_repo.go: revision lifecycle operations
//   - referral_repo.go: link-graph queries
//
// The extractor is injected so that compound mutations (delete-of-current,
// undelete) can rebuild referral edges inside their own transaction.
type sqliteDb struct {
	*PreparedStatements
	conn    *sqlx.DB
	extract wiki.LinkExtractor
}

// Open connects to the sqlite database file, applies migrations and returns
// the repository.
func Open(databaseFile string, extractor wiki.LinkExtractor) (*sqliteDb, error) {
	conn, err := sqlx.Open("sqlite", databaseFile)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err := RunMigrations(conn); err != nil {
		return nil, err
	}

	return Init(conn, extractor)
}

// Init initializes the storage layer with an existing database connection.
// The connection should already have migrations applied via RunMigrations.
func Init(db *sqlx.DB, extractor wiki.LinkExtractor) (*sqliteDb, error) {
	store := &sqliteDb{conn: db, extract: extractor}

	var err error
	store.PreparedStatements, err = InitializeStatements(db)
	if err != nil {
		return nil, errors.Wrap(err, "preparing statements")
	}

	return store, nil
}
