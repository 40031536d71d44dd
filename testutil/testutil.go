// Package testutil provides shared fixtures for pagestore tests.
package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mirrorwell/pagestore/internal/storage"
	"github.com/mirrorwell/pagestore/links"
	"github.com/mirrorwell/pagestore/wiki"
	"github.com/mirrorwell/pagestore/wiki/service"
)

// SetupTestDB creates an in-memory SQLite database with migrations applied.
func SetupTestDB(t *testing.T) (*sqlx.DB, func()) {
	t.Helper()

	conn, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	// Every sqlite connection gets its own :memory: database; pin the pool
	// to one connection so all queries see the same data.
	conn.SetMaxOpenConns(1)

	if err := storage.RunMigrations(conn); err != nil {
		conn.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		conn.Close()
	}

	return conn, cleanup
}

// SetupTestStore creates a full page store over an in-memory database.
func SetupTestStore(t *testing.T) (service.PageService, func()) {
	t.Helper()

	conn, cleanup := SetupTestDB(t)

	extractor := links.NewExtractor()
	repo, err := storage.Init(conn, extractor)
	if err != nil {
		cleanup()
		t.Fatalf("failed to initialize storage: %v", err)
	}

	return service.NewPageService(repo, repo, extractor), cleanup
}

// MustAdd adds a revision and fails the test on error.
func MustAdd(t *testing.T, store service.PageService, name, markup string) *wiki.Revision {
	t.Helper()

	rev, err := store.Add(wiki.NewRevision(name, markup))
	if err != nil {
		t.Fatalf("failed to add revision to %q: %v", name, err)
	}
	return rev
}
