package storage

import (
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mirrorwell/pagestore/links"
	"github.com/mirrorwell/pagestore/wiki"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) (*sqliteDb, func()) {
	t.Helper()

	conn, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := RunMigrations(conn); err != nil {
		conn.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := Init(conn, links.NewExtractor())
	if err != nil {
		conn.Close()
		t.Fatalf("failed to initialize storage: %v", err)
	}

	cleanup := func() {
		conn.Close()
	}

	return db, cleanup
}

// addRevision inserts a revision with edges extracted from its markup.
func addRevision(t *testing.T, db *sqliteDb, name, markup string) *wiki.Revision {
	t.Helper()

	created, err := db.Insert(wiki.NewRevision(name, markup), db.extract.ExtractLinks(markup))
	if err != nil {
		t.Fatalf("Insert failed for %q: %v", name, err)
	}
	return created
}

// countCurrent returns how many rows qualify as current for a page.
func countCurrent(t *testing.T, db *sqliteDb, name string) int {
	t.Helper()

	var n int
	err := db.conn.Get(&n, `SELECT COUNT(*) FROM Revision WHERE page_name = ? AND next_id = 0 AND deleted = 0`, name)
	if err != nil {
		t.Fatalf("counting current revisions failed: %v", err)
	}
	return n
}

func TestInsertAndSelectCurrent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	first := addRevision(t, db, "Exists", "version one")
	if first.Number != 1 {
		t.Errorf("expected first revision number 1, got %d", first.Number)
	}

	second := addRevision(t, db, "Exists", "version two")
	if second.Number != 2 {
		t.Errorf("expected second revision number 2, got %d", second.Number)
	}

	current, err := db.SelectCurrent("Exists", false)
	if err != nil {
		t.Fatalf("SelectCurrent failed: %v", err)
	}
	if current.Markup != "version two" {
		t.Errorf("expected current markup 'version two', got %q", current.Markup)
	}

	// The superseded revision now carries a forward pointer at the new one.
	prev, err := db.SelectByNumber("Exists", 1)
	if err != nil {
		t.Fatalf("SelectByNumber failed: %v", err)
	}
	if prev.NextID != second.ID {
		t.Errorf("expected revision 1 to point at %d, got %d", second.ID, prev.NextID)
	}

	if n := countCurrent(t, db, "Exists"); n != 1 {
		t.Errorf("expected exactly one current revision, got %d", n)
	}
}

func TestSelectByID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	created := addRevision(t, db, "Exists", "body")

	rev, err := db.SelectByID(created.ID)
	if err != nil {
		t.Fatalf("SelectByID failed: %v", err)
	}
	if rev.PageName != "Exists" || rev.Markup != "body" {
		t.Errorf("unexpected revision: %+v", rev)
	}

	if _, err := db.SelectByID(9999); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows for unknown id, got: %v", err)
	}
}

func TestNumbersStayDenseAcrossTrailingDeletes(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "one")
	addRevision(t, db, "Exists", "two")
	addRevision(t, db, "Exists", "three")

	// Soft-delete the trailing revision; revision 2 becomes current.
	if _, _, err := db.DeleteRevision("Exists", 3); err != nil {
		t.Fatalf("DeleteRevision failed: %v", err)
	}

	current, err := db.SelectCurrent("Exists", false)
	if err != nil {
		t.Fatalf("SelectCurrent failed: %v", err)
	}
	if current.Number != 2 {
		t.Fatalf("expected revision 2 to be current, got %d", current.Number)
	}

	// A new revision must be numbered past the deleted 3, not current+1.
	next := addRevision(t, db, "Exists", "four")
	if next.Number != 4 {
		t.Errorf("expected new revision number 4, got %d", next.Number)
	}

	promoted, err := db.SelectByNumber("Exists", 2)
	if err != nil {
		t.Fatalf("SelectByNumber failed: %v", err)
	}
	if promoted.NextID != next.ID {
		t.Errorf("expected revision 2 to point at %d, got %d", next.ID, promoted.NextID)
	}
}

func TestDeletePage(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Doomed", "links to [Target]")
	addRevision(t, db, "Doomed", "still links to [Target]")
	addRevision(t, db, "Linker", "links to [Doomed]")

	count, err := db.DeletePage("Doomed")
	if err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 revisions deleted, got %d", count)
	}

	if _, err := db.SelectCurrent("Doomed", false); err != sql.ErrNoRows {
		t.Errorf("expected no live current revision, got: %v", err)
	}

	// A soft-deleted page is still visible when deleted rows count.
	ghost, err := db.SelectCurrent("Doomed", true)
	if err != nil {
		t.Fatalf("SelectCurrent(includeDeleted) failed: %v", err)
	}
	if !ghost.Deleted || ghost.Number != 2 {
		t.Errorf("expected deleted revision 2, got %+v", ghost)
	}

	// Outbound edges are gone; the inbound edge from Linker survives.
	outbound, err := db.SelectByReferrer("Doomed")
	if err != nil {
		t.Fatalf("SelectByReferrer failed: %v", err)
	}
	if len(outbound) != 0 {
		t.Errorf("expected no outbound edges, got %d", len(outbound))
	}

	inbound, err := db.SelectByTarget("Doomed")
	if err != nil {
		t.Fatalf("SelectByTarget failed: %v", err)
	}
	if len(inbound) != 1 {
		t.Errorf("expected the inbound edge to survive, got %d", len(inbound))
	}
}

func TestDeletePageOfNothing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	count, err := db.DeletePage("Missing")
	if err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 revisions deleted, got %d", count)
	}
}

func TestDeleteRevisionPromotesPrior(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "first has [Old] link")
	addRevision(t, db, "Exists", "second has [New] link")

	promoted, wasCurrent, err := db.DeleteRevision("Exists", 2)
	if err != nil {
		t.Fatalf("DeleteRevision failed: %v", err)
	}
	if !wasCurrent {
		t.Fatal("expected revision 2 to have been current")
	}
	if promoted == nil || promoted.Number != 1 {
		t.Fatalf("expected revision 1 promoted, got %+v", promoted)
	}
	if promoted.NextID != 0 {
		t.Errorf("promoted revision should have no forward pointer, got %d", promoted.NextID)
	}

	// Edges now reflect the promoted revision's markup.
	edges, err := db.SelectByReferrer("Exists")
	if err != nil {
		t.Fatalf("SelectByReferrer failed: %v", err)
	}
	if len(edges) != 1 || edges[0].Referral != "Old" {
		t.Errorf("expected one edge to 'Old', got %+v", edges)
	}

	if n := countCurrent(t, db, "Exists"); n != 1 {
		t.Errorf("expected exactly one current revision, got %d", n)
	}
}

func TestDeleteRevisionNonCurrent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "first")
	addRevision(t, db, "Exists", "second has [Kept] link")

	promoted, wasCurrent, err := db.DeleteRevision("Exists", 1)
	if err != nil {
		t.Fatalf("DeleteRevision failed: %v", err)
	}
	if wasCurrent || promoted != nil {
		t.Errorf("deleting a non-current revision should not promote, got %+v (wasCurrent=%v)", promoted, wasCurrent)
	}

	// The current revision and its edges are untouched.
	current, err := db.SelectCurrent("Exists", false)
	if err != nil {
		t.Fatalf("SelectCurrent failed: %v", err)
	}
	if current.Number != 2 {
		t.Errorf("expected revision 2 to stay current, got %d", current.Number)
	}

	edges, err := db.SelectByReferrer("Exists")
	if err != nil {
		t.Fatalf("SelectByReferrer failed: %v", err)
	}
	if len(edges) != 1 || edges[0].Referral != "Kept" {
		t.Errorf("expected edges untouched, got %+v", edges)
	}
}

func TestDeleteRevisionMissingIsNoop(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "body")

	promoted, wasCurrent, err := db.DeleteRevision("Exists", 7)
	if err != nil || wasCurrent || promoted != nil {
		t.Errorf("expected a silent no-op, got %+v, %v, %v", promoted, wasCurrent, err)
	}

	// Deleting twice is also a no-op the second time.
	if _, _, err := db.DeleteRevision("Exists", 1); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}
	promoted, wasCurrent, err = db.DeleteRevision("Exists", 1)
	if err != nil || wasCurrent || promoted != nil {
		t.Errorf("expected repeat delete to be a no-op, got %+v, %v, %v", promoted, wasCurrent, err)
	}
}

func TestDeleteOnlyRevisionClearsEdges(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "links to [X]")

	promoted, wasCurrent, err := db.DeleteRevision("Exists", 1)
	if err != nil {
		t.Fatalf("DeleteRevision failed: %v", err)
	}
	if !wasCurrent || promoted != nil {
		t.Errorf("expected current deleted with nothing to promote, got %+v (wasCurrent=%v)", promoted, wasCurrent)
	}

	edges, err := db.SelectByReferrer("Exists")
	if err != nil {
		t.Fatalf("SelectByReferrer failed: %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("expected no edges for a page with no current revision, got %d", len(edges))
	}
}

func TestUndeleteRestoresChain(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "one links [A]")
	second := addRevision(t, db, "Exists", "two links [B]")
	third := addRevision(t, db, "Exists", "three links [C]")

	if _, err := db.DeletePage("Exists"); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}

	current, err := db.Undelete("Exists")
	if err != nil {
		t.Fatalf("Undelete failed: %v", err)
	}
	if current == nil || current.Number != 3 {
		t.Fatalf("expected revision 3 current after undelete, got %+v", current)
	}

	// Chain reconstructed: 1 -> 2 -> 3 -> (none).
	r1, _ := db.SelectByNumber("Exists", 1)
	r2, _ := db.SelectByNumber("Exists", 2)
	r3, _ := db.SelectByNumber("Exists", 3)
	if r1 == nil || r2 == nil || r3 == nil {
		t.Fatal("expected all three revisions live after undelete")
	}
	if r1.NextID != second.ID {
		t.Errorf("expected revision 1 to point at %d, got %d", second.ID, r1.NextID)
	}
	if r2.NextID != third.ID {
		t.Errorf("expected revision 2 to point at %d, got %d", third.ID, r2.NextID)
	}
	if r3.NextID != 0 {
		t.Errorf("expected revision 3 to be current, forward pointer %d", r3.NextID)
	}

	// Edges rebuilt from the restored current revision.
	edges, err := db.SelectByReferrer("Exists")
	if err != nil {
		t.Fatalf("SelectByReferrer failed: %v", err)
	}
	if len(edges) != 1 || edges[0].Referral != "C" {
		t.Errorf("expected one edge to 'C', got %+v", edges)
	}

	if n := countCurrent(t, db, "Exists"); n != 1 {
		t.Errorf("expected exactly one current revision, got %d", n)
	}
}

func TestUndeleteNothingDeleted(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "live and well")

	current, err := db.Undelete("Exists")
	if err != nil {
		t.Fatalf("Undelete failed: %v", err)
	}
	if current != nil {
		t.Errorf("expected no change for a fully live page, got %+v", current)
	}

	// Undeleting a page with no revisions at all is also a no-op.
	current, err = db.Undelete("Missing")
	if err != nil || current != nil {
		t.Errorf("expected a no-op for a missing page, got %+v, %v", current, err)
	}
}

func TestUndeleteTrailingSpan(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "one")
	addRevision(t, db, "Exists", "two")
	third := addRevision(t, db, "Exists", "three links [C]")

	// Delete the trailing revision; 2 is promoted.
	if _, _, err := db.DeleteRevision("Exists", 3); err != nil {
		t.Fatalf("DeleteRevision failed: %v", err)
	}

	current, err := db.Undelete("Exists")
	if err != nil {
		t.Fatalf("Undelete failed: %v", err)
	}
	if current == nil || current.Number != 3 {
		t.Fatalf("expected revision 3 restored as current, got %+v", current)
	}

	r2, _ := db.SelectByNumber("Exists", 2)
	if r2.NextID != third.ID {
		t.Errorf("expected revision 2 repointed at %d, got %d", third.ID, r2.NextID)
	}

	if n := countCurrent(t, db, "Exists"); n != 1 {
		t.Errorf("expected exactly one current revision, got %d", n)
	}
}

func TestUndeleteMiddleRevision(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Exists", "one")
	second := addRevision(t, db, "Exists", "two")
	third := addRevision(t, db, "Exists", "three links [C]")

	// Delete a non-current revision, then restore the page.
	if _, _, err := db.DeleteRevision("Exists", 2); err != nil {
		t.Fatalf("DeleteRevision failed: %v", err)
	}
	current, err := db.Undelete("Exists")
	if err != nil {
		t.Fatalf("Undelete failed: %v", err)
	}
	if current == nil || current.Number != 3 {
		t.Fatalf("expected revision 3 to stay current, got %+v", current)
	}

	r1, _ := db.SelectByNumber("Exists", 1)
	r2, _ := db.SelectByNumber("Exists", 2)
	if r1 == nil || r2 == nil {
		t.Fatal("expected revisions 1 and 2 live after undelete")
	}
	if r1.NextID != second.ID {
		t.Errorf("expected revision 1 to point at %d, got %d", second.ID, r1.NextID)
	}
	if r2.NextID != third.ID {
		t.Errorf("expected revision 2 repointed at %d, got %d", third.ID, r2.NextID)
	}

	if n := countCurrent(t, db, "Exists"); n != 1 {
		t.Errorf("expected exactly one current revision, got %d", n)
	}
}

func TestMoveRenamesHistoryAndEdges(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Old", "links to [Elsewhere]")
	addRevision(t, db, "Old", "still links to [Elsewhere]")
	addRevision(t, db, "Linker", "links to [Old]")

	if err := db.Move("Old", "New"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	// Whole history moved, not just the current revision.
	var n int
	if err := db.conn.Get(&n, `SELECT COUNT(*) FROM Revision WHERE page_name = 'New'`); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 revisions under the new name, got %d", n)
	}
	if err := db.conn.Get(&n, `SELECT COUNT(*) FROM Revision WHERE page_name = 'Old'`); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no revisions left under the old name, got %d", n)
	}

	// Outbound edges follow the page; inbound edges still name the old page.
	outbound, err := db.SelectByReferrer("New")
	if err != nil {
		t.Fatalf("SelectByReferrer failed: %v", err)
	}
	if len(outbound) != 1 || outbound[0].Referral != "Elsewhere" {
		t.Errorf("expected outbound edge under new name, got %+v", outbound)
	}

	inbound, err := db.SelectByTarget("Old")
	if err != nil {
		t.Fatalf("SelectByTarget failed: %v", err)
	}
	if len(inbound) != 1 || inbound[0].Referrer != "Linker" {
		t.Errorf("expected the stale inbound edge to remain, got %+v", inbound)
	}
}

func TestMoveOntoOccupiedName(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Source", "body")
	addRevision(t, db, "Taken", "body")

	err := db.Move("Source", "Taken")
	if err != wiki.ErrConflict {
		t.Fatalf("expected ErrConflict, got: %v", err)
	}

	// Nothing changed.
	if _, err := db.SelectCurrent("Source", false); err != nil {
		t.Errorf("source should be untouched after a failed move: %v", err)
	}
}

func TestMoveNothing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Move("Missing", "Anywhere"); err != nil {
		t.Errorf("moving a nonexistent page should be a trivial success, got: %v", err)
	}
}

func TestSelectPageNamesAndAllCurrent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	addRevision(t, db, "Beta", "body")
	addRevision(t, db, "Alpha", "body")
	addRevision(t, db, "Alpha", "newer body")
	addRevision(t, db, "Gone", "body")
	if _, err := db.DeletePage("Gone"); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}

	names, err := db.SelectPageNames()
	if err != nil {
		t.Fatalf("SelectPageNames failed: %v", err)
	}
	// Deleted pages still occupy their name.
	want := []string{"Alpha", "Beta", "Gone"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected name %q at %d, got %q", want[i], i, names[i])
		}
	}

	current, err := db.SelectAllCurrent()
	if err != nil {
		t.Fatalf("SelectAllCurrent failed: %v", err)
	}
	if len(current) != 2 {
		t.Fatalf("expected 2 live pages, got %d", len(current))
	}
	if current[0].PageName != "Alpha" || current[0].Number != 2 {
		t.Errorf("expected Alpha at revision 2 first, got %+v", current[0])
	}
	if current[1].PageName != "Beta" {
		t.Errorf("expected Beta second, got %+v", current[1])
	}
}
