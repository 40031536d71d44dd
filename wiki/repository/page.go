package repository

import "github.com/mirrorwell/pagestore/wiki"

// PageRepository defines the persistence operations for page revisions. Every
// mutating method runs as a single transaction; mid-operation interference
// from another writer surfaces as wiki.ErrConflict with nothing written.
type PageRepository interface {
	// SelectCurrent retrieves the current revision for a page: no forward
	// pointer and, unless includeDeleted is set, not soft-deleted. When more
	// than one row qualifies the highest revision number wins.
	SelectCurrent(name string, includeDeleted bool) (*wiki.Revision, error)

	// SelectByNumber retrieves a specific non-deleted revision of a page.
	SelectByNumber(name string, number int) (*wiki.Revision, error)

	// SelectByID retrieves a revision by its own id, regardless of page.
	SelectByID(id int64) (*wiki.Revision, error)

	// SelectPageNames returns every distinct page name in storage.
	SelectPageNames() ([]string, error)

	// SelectAllCurrent returns the current revision of every live page.
	SelectAllCurrent() ([]*wiki.Revision, error)

	// Insert persists a new revision, assigns it MAX(revision)+1 for its
	// page, repoints the previous current revision at it, and replaces the
	// page's referral edges with the given links.
	Insert(rev *wiki.Revision, links []wiki.Link) (*wiki.Revision, error)

	// Move renames every revision of a page and every referral edge whose
	// referrer matches. Edges targeting the old name are left alone.
	Move(from, to string) error

	// DeletePage soft-deletes every live revision of a page, clears their
	// forward pointers and drops the page's outbound referral edges.
	// Returns the number of revisions soft-deleted.
	DeletePage(name string) (int, error)

	// DeleteRevision soft-deletes one revision. A missing or already-deleted
	// revision is a no-op. wasCurrent reports whether the targeted revision
	// was the page's current one; in that case the highest surviving
	// revision is promoted and returned (nil when none survive), with the
	// page's referral edges rebuilt from its markup.
	DeleteRevision(name string, number int) (promoted *wiki.Revision, wasCurrent bool, err error)

	// Undelete restores every soft-deleted revision of a page and rebuilds
	// the forward-pointer chain. Returns the new current revision, or nil
	// when the page had nothing deleted.
	Undelete(name string) (*wiki.Revision, error)
}
