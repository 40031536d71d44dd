package wiki

import "time"

// Revision represents one immutable snapshot of a page's content. A revision
// whose NextID is zero and which is not deleted is the current revision for
// its page.
type Revision struct {
	ID         int64     `db:"id"`
	PageName   string    `db:"page_name"`
	Number     int       `db:"revision"`
	Markup     string    `db:"markup"`
	MinorEdit  bool      `db:"minor_edit"`
	Message    string    `db:"message"`
	Author     string    `db:"author"`
	Created    time.Time `db:"created"`
	Deleted    bool      `db:"deleted"`
	NextID     int64     `db:"next_id"`
	RowVersion int64     `db:"row_version"`
}

// NewRevision creates a revision for the given page with the given markup.
func NewRevision(pageName, markup string) *Revision {
	return &Revision{PageName: pageName, Markup: markup}
}

// IsCurrent reports whether this revision is the live revision of its page.
func (r *Revision) IsCurrent() bool {
	return !r.Deleted && r.NextID == 0
}

// Clone returns a copy of the revision. Cached entries are always clones so
// that storage code can never mutate a snapshot out from under a reader.
func (r *Revision) Clone() *Revision {
	c := *r
	return &c
}
