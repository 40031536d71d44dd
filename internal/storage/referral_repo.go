package storage

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mirrorwell/pagestore/wiki"
)

// Referral (link-graph) query methods for sqliteDb.

// currentViewSQL restricts a query aliased as r to the current revision of
// each live page.
const currentViewSQL = `r.next_id = 0 AND r.deleted = 0
	AND r.revision = (SELECT MAX(r2.revision) FROM Revision r2
	                  WHERE r2.page_name = r.page_name AND r2.next_id = 0 AND r2.deleted = 0)`

func (db *sqliteDb) SelectByReferrer(name string) ([]*wiki.Referral, error) {
	var edges []*wiki.Referral
	err := db.conn.Select(&edges, `SELECT id, referrer, referral, excerpt FROM Referral WHERE referrer = ? ORDER BY referral ASC`, name)
	return edges, err
}

func (db *sqliteDb) SelectByTarget(name string) ([]*wiki.Referral, error) {
	var edges []*wiki.Referral
	err := db.conn.Select(&edges, `SELECT id, referrer, referral, excerpt FROM Referral WHERE referral = ? ORDER BY referrer ASC`, name)
	return edges, err
}

func (db *sqliteDb) SelectBroken(ignorePrefixes []string) ([]*wiki.Referral, error) {
	q := `SELECT id, referrer, referral, excerpt FROM Referral f
		WHERE NOT EXISTS (SELECT 1 FROM Revision r
		                  WHERE r.page_name = f.referral AND r.next_id = 0 AND r.deleted = 0)`

	args := make([]interface{}, 0, len(ignorePrefixes))
	var sb strings.Builder
	sb.WriteString(q)
	for _, prefix := range ignorePrefixes {
		sb.WriteString(` AND f.referral NOT LIKE ?`)
		args = append(args, prefix+"%")
	}
	sb.WriteString(` ORDER BY f.referrer ASC, f.referral ASC`)

	var edges []*wiki.Referral
	err := db.conn.Select(&edges, sb.String(), args...)
	return edges, err
}

func (db *sqliteDb) SelectOrphans(allowlist []string) ([]*wiki.Revision, error) {
	q := `SELECT ` + revisionColumns + ` FROM Revision r
		WHERE ` + currentViewSQL + `
		  AND r.page_name NOT LIKE '%/%'
		  AND NOT EXISTS (SELECT 1 FROM Referral f WHERE f.referral = r.page_name)`

	var args []interface{}
	if len(allowlist) > 0 {
		in, inArgs, err := sqlx.In(` AND r.page_name NOT IN (?)`, allowlist)
		if err != nil {
			return nil, err
		}
		q += in
		args = inArgs
	}
	q += ` ORDER BY r.page_name ASC`

	var revs []*wiki.Revision
	err := db.conn.Select(&revs, q, args...)
	return revs, err
}

// Subpage and parent lookups compare name prefixes with substr rather than
// LIKE: page names may legitimately contain '_' or '%', which LIKE would
// treat as wildcards.

func (db *sqliteDb) SelectSubpages(name string) ([]*wiki.Revision, error) {
	var revs []*wiki.Revision
	err := db.conn.Select(&revs, `
		SELECT `+revisionColumns+` FROM Revision r
		WHERE `+currentViewSQL+`
		  AND substr(r.page_name, 1, length(?) + 1) = ? || '/'
		ORDER BY r.page_name ASC`, name, name)
	return revs, err
}

func (db *sqliteDb) SelectParents(name string) ([]*wiki.Revision, error) {
	var revs []*wiki.Revision
	err := db.conn.Select(&revs, `
		SELECT `+revisionColumns+` FROM Revision r
		WHERE `+currentViewSQL+`
		  AND substr(?, 1, length(r.page_name) + 1) = r.page_name || '/'
		ORDER BY r.page_name ASC`, name)
	return revs, err
}

func (db *sqliteDb) CountReferrals() (int, error) {
	var count int
	err := db.conn.Get(&count, `SELECT COUNT(*) FROM Referral`)
	return count, err
}
