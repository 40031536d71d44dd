package service_test

import (
	"database/sql"
	"testing"

	"github.com/mirrorwell/pagestore/links"
	"github.com/mirrorwell/pagestore/wiki"
	"github.com/mirrorwell/pagestore/wiki/service"
)

// racedRepo simulates a repository whose every mutation loses to another
// writer, so the service's conflict conversions can be exercised directly.
type racedRepo struct{}

func (racedRepo) SelectCurrent(name string, includeDeleted bool) (*wiki.Revision, error) {
	return nil, sql.ErrNoRows
}

func (racedRepo) SelectByNumber(name string, number int) (*wiki.Revision, error) {
	return nil, sql.ErrNoRows
}

func (racedRepo) SelectByID(id int64) (*wiki.Revision, error) {
	return nil, sql.ErrNoRows
}

func (racedRepo) SelectPageNames() ([]string, error) {
	return nil, nil
}

func (racedRepo) SelectAllCurrent() ([]*wiki.Revision, error) {
	return nil, nil
}

func (racedRepo) Insert(rev *wiki.Revision, outbound []wiki.Link) (*wiki.Revision, error) {
	return nil, wiki.ErrConflict
}

func (racedRepo) Move(from, to string) error {
	return wiki.ErrConflict
}

func (racedRepo) DeletePage(name string) (int, error) {
	return 0, wiki.ErrConflict
}

func (racedRepo) DeleteRevision(name string, number int) (*wiki.Revision, bool, error) {
	return nil, false, wiki.ErrConflict
}

func (racedRepo) Undelete(name string) (*wiki.Revision, error) {
	return nil, wiki.ErrConflict
}

func (racedRepo) SelectByReferrer(name string) ([]*wiki.Referral, error) {
	return nil, nil
}

func (racedRepo) SelectByTarget(name string) ([]*wiki.Referral, error) {
	return nil, nil
}

func (racedRepo) SelectBroken(ignorePrefixes []string) ([]*wiki.Referral, error) {
	return nil, nil
}

func (racedRepo) SelectOrphans(allowlist []string) ([]*wiki.Revision, error) {
	return nil, nil
}

func (racedRepo) SelectSubpages(name string) ([]*wiki.Revision, error) {
	return nil, nil
}

func (racedRepo) SelectParents(name string) ([]*wiki.Revision, error) {
	return nil, nil
}

func (racedRepo) CountReferrals() (int, error) {
	return 0, nil
}

func TestConflictsBecomeSentinels(t *testing.T) {
	repo := racedRepo{}
	store := service.NewPageService(repo, repo, links.NewExtractor())

	// Move and Undelete report a lost race as a false result, DeletePage as
	// the -1 sentinel. None of them surface the conflict as an error.
	ok, err := store.Move("Old", "New")
	if err != nil {
		t.Fatalf("Move should swallow the conflict, got: %v", err)
	}
	if ok {
		t.Error("Move should report failure after a lost race")
	}

	count, err := store.DeletePage("Doomed")
	if err != nil {
		t.Fatalf("DeletePage should swallow the conflict, got: %v", err)
	}
	if count != -1 {
		t.Errorf("DeletePage should report -1 after a lost race, got %d", count)
	}

	ok, err = store.Undelete("Gone")
	if err != nil {
		t.Fatalf("Undelete should swallow the conflict, got: %v", err)
	}
	if ok {
		t.Error("Undelete should report failure after a lost race")
	}

	// Add has no boolean sentinel; a lost race propagates as the error.
	if _, err := store.Add(wiki.NewRevision("Page", "body")); err != wiki.ErrConflict {
		t.Errorf("Add should propagate the conflict, got: %v", err)
	}
}
