package storage

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mirrorwell/pagestore/wiki"
)

// Page repository methods for sqliteDb.
//
// Every compound mutation here is one transaction. Row-version guards turn
// interference from another writer into wiki.ErrConflict, and the deferred
// rollback guarantees no partial writes leak out.

const selectCurrentSQL = `SELECT ` + revisionColumns + ` FROM Revision WHERE ` +
	currentRevisionWhere + ` ORDER BY revision DESC LIMIT 1`

const selectLiveSQL = `SELECT ` + revisionColumns + ` FROM Revision
	WHERE page_name = ? AND deleted = 0 ORDER BY revision DESC LIMIT 1`

func (db *sqliteDb) SelectCurrent(name string, includeDeleted bool) (*wiki.Revision, error) {
	rev := &wiki.Revision{}
	var err error
	if includeDeleted {
		err = db.SelectCurrentWithDeletedStmt.Get(rev, name)
	} else {
		err = db.SelectCurrentStmt.Get(rev, name)
	}
	if err != nil {
		return nil, err
	}
	return rev, nil
}

func (db *sqliteDb) SelectByNumber(name string, number int) (*wiki.Revision, error) {
	rev := &wiki.Revision{}
	if err := db.SelectByNumberStmt.Get(rev, name, number); err != nil {
		return nil, err
	}
	return rev, nil
}

func (db *sqliteDb) SelectByID(id int64) (*wiki.Revision, error) {
	rev := &wiki.Revision{}
	if err := db.SelectByIDStmt.Get(rev, id); err != nil {
		return nil, err
	}
	return rev, nil
}

func (db *sqliteDb) SelectPageNames() ([]string, error) {
	var names []string
	err := db.conn.Select(&names, `SELECT DISTINCT page_name FROM Revision ORDER BY page_name ASC`)
	return names, err
}

func (db *sqliteDb) SelectAllCurrent() ([]*wiki.Revision, error) {
	var revs []*wiki.Revision
	err := db.conn.Select(&revs, `
		SELECT `+revisionColumns+` FROM Revision r
		WHERE next_id = 0 AND deleted = 0
		  AND revision = (SELECT MAX(r2.revision) FROM Revision r2
		                  WHERE r2.page_name = r.page_name AND r2.next_id = 0 AND r2.deleted = 0)
		ORDER BY page_name ASC`)
	return revs, err
}

func (db *sqliteDb) Insert(rev *wiki.Revision, links []wiki.Link) (created *wiki.Revision, err error) {
	var tx *sqlx.Tx
	tx, err = db.conn.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		return nil, err
	}

	defer func() {
		if err != nil {
			slog.Error("revision insert failed", "page", rev.PageName, "error", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("transaction rollback failed", "error", rbErr)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = commitErr
				slog.Error("transaction commit failed", "error", commitErr)
			}
		}
	}()

	// MAX over all revisions, deleted included, so numbers stay dense and
	// ordered even when the current revision is not the highest-numbered one.
	var maxNumber int
	if err = tx.Get(&maxNumber, `SELECT COALESCE(MAX(revision), 0) FROM Revision WHERE page_name = ?`, rev.PageName); err != nil {
		return nil, err
	}

	current := &wiki.Revision{}
	err = tx.Get(current, selectCurrentSQL, rev.PageName)
	if err == sql.ErrNoRows {
		current, err = nil, nil
	} else if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var res sql.Result
	res, err = tx.Exec(`INSERT INTO Revision (page_name, revision, markup, minor_edit, message, author, created, deleted, next_id, row_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, 0)`,
		rev.PageName,
		maxNumber+1,
		rev.Markup,
		rev.MinorEdit,
		rev.Message,
		rev.Author,
		now)
	if err != nil {
		return nil, err
	}

	var id int64
	if id, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	if current != nil {
		if err = guardedExec(tx, `UPDATE Revision SET next_id = ?, row_version = row_version + 1 WHERE id = ? AND row_version = ?`,
			id, current.ID, current.RowVersion); err != nil {
			return nil, err
		}
	}

	if err = replaceReferrals(tx, rev.PageName, links); err != nil {
		return nil, err
	}

	created = rev.Clone()
	created.ID = id
	created.Number = maxNumber + 1
	created.Created = now
	created.Deleted = false
	created.NextID = 0
	created.RowVersion = 0
	return created, nil
}

func (db *sqliteDb) Move(from, to string) (err error) {
	var tx *sqlx.Tx
	tx, err = db.conn.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("transaction rollback failed", "error", rbErr)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = commitErr
				slog.Error("transaction commit failed", "error", commitErr)
			}
		}
	}()

	// The service already rejected an existing destination. Seeing one here
	// means it was created between that check and this transaction.
	var destCount int
	if err = tx.Get(&destCount, `SELECT COUNT(*) FROM Revision WHERE page_name = ?`, to); err != nil {
		return err
	}
	if destCount > 0 {
		err = wiki.ErrConflict
		return err
	}

	var source []*wiki.Revision
	if err = tx.Select(&source, `SELECT id, row_version FROM Revision WHERE page_name = ?`, from); err != nil {
		return err
	}

	for _, r := range source {
		if err = guardedExec(tx, `UPDATE Revision SET page_name = ?, row_version = row_version + 1 WHERE id = ? AND row_version = ?`,
			to, r.ID, r.RowVersion); err != nil {
			return err
		}
	}

	// Only the referrer label moves. Edges elsewhere that target the old name
	// are left pointing at it; they surface as broken links to be fixed.
	_, err = tx.Exec(`UPDATE Referral SET referrer = ? WHERE referrer = ?`, to, from)
	return err
}

func (db *sqliteDb) DeletePage(name string) (count int, err error) {
	var tx *sqlx.Tx
	tx, err = db.conn.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		return 0, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("transaction rollback failed", "error", rbErr)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = commitErr
				slog.Error("transaction commit failed", "error", commitErr)
			}
		}
	}()

	var live []*wiki.Revision
	if err = tx.Select(&live, `SELECT id, row_version FROM Revision WHERE page_name = ? AND deleted = 0`, name); err != nil {
		return 0, err
	}

	for _, r := range live {
		if err = guardedExec(tx, `UPDATE Revision SET deleted = 1, next_id = 0, row_version = row_version + 1 WHERE id = ? AND row_version = ?`,
			r.ID, r.RowVersion); err != nil {
			return 0, err
		}
	}

	// Outbound edges go with the page. Inbound edges stay so the page shows
	// up as a broken-link target.
	if _, err = tx.Exec(`DELETE FROM Referral WHERE referrer = ?`, name); err != nil {
		return 0, err
	}

	return len(live), nil
}

func (db *sqliteDb) DeleteRevision(name string, number int) (promoted *wiki.Revision, wasCurrent bool, err error) {
	var tx *sqlx.Tx
	tx, err = db.conn.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		return nil, false, err
	}

	defer func() {
		if err != nil {
			slog.Error("revision delete failed", "page", name, "revision", number, "error", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("transaction rollback failed", "error", rbErr)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = commitErr
				slog.Error("transaction commit failed", "error", commitErr)
			}
		}
	}()

	target := &wiki.Revision{}
	err = tx.Get(target, `SELECT `+revisionColumns+` FROM Revision WHERE page_name = ? AND revision = ? AND deleted = 0`, name, number)
	if err == sql.ErrNoRows {
		// Missing or already deleted: best-effort no-op.
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	wasCurrent = target.IsCurrent()

	if err = guardedExec(tx, `UPDATE Revision SET deleted = 1, next_id = 0, row_version = row_version + 1 WHERE id = ? AND row_version = ?`,
		target.ID, target.RowVersion); err != nil {
		return nil, false, err
	}

	if !wasCurrent {
		// Referral edges already reflect the true current revision.
		return nil, false, nil
	}

	promoted = &wiki.Revision{}
	err = tx.Get(promoted, selectLiveSQL, name)
	if err == sql.ErrNoRows {
		// Nothing left to promote; the page has no current content.
		promoted = nil
		err = replaceReferrals(tx, name, nil)
		return nil, true, err
	} else if err != nil {
		return nil, true, err
	}

	if err = guardedExec(tx, `UPDATE Revision SET next_id = 0, row_version = row_version + 1 WHERE id = ? AND row_version = ?`,
		promoted.ID, promoted.RowVersion); err != nil {
		return nil, true, err
	}
	promoted.NextID = 0
	promoted.RowVersion++

	// The only path where edges are rebuilt from a revision other than the
	// literal newest.
	if err = replaceReferrals(tx, name, db.extract.ExtractLinks(promoted.Markup)); err != nil {
		return nil, true, err
	}

	return promoted, true, nil
}

func (db *sqliteDb) Undelete(name string) (current *wiki.Revision, err error) {
	var tx *sqlx.Tx
	tx, err = db.conn.Beginx()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		return nil, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("transaction rollback failed", "error", rbErr)
			}
		} else {
			if commitErr := tx.Commit(); commitErr != nil {
				err = commitErr
				slog.Error("transaction commit failed", "error", commitErr)
			}
		}
	}()

	var revs []*wiki.Revision
	if err = tx.Select(&revs, `SELECT `+revisionColumns+` FROM Revision WHERE page_name = ? ORDER BY revision ASC`, name); err != nil {
		return nil, err
	}

	var restored []*wiki.Revision
	versions := make(map[int64]int64, len(revs))
	for _, r := range revs {
		versions[r.ID] = r.RowVersion
		if r.Deleted {
			restored = append(restored, r)
		}
	}

	if len(revs) == 0 || len(restored) == 0 {
		// Nothing deleted (or no page at all): trivially done.
		return nil, nil
	}

	bump := func(id int64, set string, args ...interface{}) error {
		args = append(args, id, versions[id])
		if err := guardedExec(tx, `UPDATE Revision SET `+set+`, row_version = row_version + 1 WHERE id = ? AND row_version = ?`, args...); err != nil {
			return err
		}
		versions[id]++
		return nil
	}

	for _, r := range restored {
		if err = bump(r.ID, `deleted = 0`); err != nil {
			return nil, err
		}
	}

	// Every revision is live again, so the whole forward chain is
	// deterministic: rebuild it in revision order. This also repairs pointers
	// that a revision-level delete cleared without touching its predecessor.
	for i := 1; i < len(revs); i++ {
		if err = bump(revs[i-1].ID, `next_id = ?`, revs[i].ID); err != nil {
			return nil, err
		}
	}

	highest := revs[len(revs)-1]
	if err = bump(highest.ID, `next_id = 0`); err != nil {
		return nil, err
	}

	if err = replaceReferrals(tx, name, db.extract.ExtractLinks(highest.Markup)); err != nil {
		return nil, err
	}

	current = highest.Clone()
	current.Deleted = false
	current.NextID = 0
	current.RowVersion = versions[highest.ID]
	return current, nil
}

// guardedExec runs an UPDATE whose WHERE clause carries a row_version check
// and converts "no rows matched" into wiki.ErrConflict.
func guardedExec(tx *sqlx.Tx, query string, args ...interface{}) error {
	res, err := tx.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wiki.ErrConflict
	}
	return nil
}

// replaceReferrals swaps a page's outbound edge set wholesale so readers never
// observe a partial mix of old and new edges.
func replaceReferrals(tx *sqlx.Tx, referrer string, links []wiki.Link) error {
	if _, err := tx.Exec(`DELETE FROM Referral WHERE referrer = ?`, referrer); err != nil {
		return err
	}

	for _, link := range links {
		if _, err := tx.Exec(`INSERT INTO Referral (referrer, referral, excerpt) VALUES (?, ?, ?)`,
			referrer, link.Target, link.Excerpt); err != nil {
			return err
		}
	}

	return nil
}
