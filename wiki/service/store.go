package service

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mirrorwell/pagestore/internal/cache"
	"github.com/mirrorwell/pagestore/wiki"
	"github.com/mirrorwell/pagestore/wiki/repository"
)

// PageService is the page store: the only component that writes revisions and
// referral edges, and the owner of the current-revision cache.
type PageService interface {
	// Exists reports whether a page has a current revision. With
	// includeDeleted, soft-deleted pages count too.
	Exists(name string, includeDeleted bool) (bool, error)

	// Page retrieves the current revision of a page.
	Page(name string) (*wiki.Revision, error)

	// PageRevision retrieves a specific non-deleted revision of a page,
	// always bypassing the cache.
	PageRevision(name string, number int) (*wiki.Revision, error)

	// Revision retrieves a revision by its own id, regardless of page name.
	Revision(id int64) (*wiki.Revision, error)

	// Add persists a new revision as the page's current one.
	Add(rev *wiki.Revision) (*wiki.Revision, error)

	// Move renames a page. Returns false (with no changes) when another
	// writer interfered mid-operation.
	Move(from, to string) (bool, error)

	// DeletePage soft-deletes every live revision of a page. Returns the
	// count deleted, or -1 when another writer interfered.
	DeletePage(name string) (int, error)

	// DeleteRevision soft-deletes a single revision, best-effort.
	DeleteRevision(name string, number int) error

	// Undelete restores every soft-deleted revision of a page. Returns
	// false when another writer interfered.
	Undelete(name string) (bool, error)

	// Orphans returns live pages nothing links to.
	Orphans() ([]*wiki.Revision, error)

	// BrokenLinks returns referral edges whose target is not a live page.
	BrokenLinks() ([]*wiki.Referral, error)

	// SubpagesOf and ParentsOf are structural queries over the
	// slash-delimited name convention.
	SubpagesOf(name string) ([]*wiki.Revision, error)
	ParentsOf(name string) ([]*wiki.Revision, error)

	// Backlinks returns the edges pointing at a page; ReferralsFrom returns
	// the edges leaving it.
	Backlinks(name string) ([]*wiki.Referral, error)
	ReferralsFrom(name string) ([]*wiki.Referral, error)

	// ReferralCount returns the total number of edges in the graph.
	ReferralCount() (int, error)

	// FlushCache evicts every cached page. PrePopulateCache eagerly loads
	// every live current revision, for warm starts.
	FlushCache() error
	PrePopulateCache() error
}

// pageService is the default implementation of PageService.
type pageService struct {
	pages     repository.PageRepository
	referrals repository.ReferralRepository
	cache     *cache.RevisionCache
	strip     *bluemonday.Policy
	extractor wiki.LinkExtractor
}

// NewPageService creates a PageService with an empty cache.
func NewPageService(pages repository.PageRepository, referrals repository.ReferralRepository, extractor wiki.LinkExtractor) PageService {
	return &pageService{
		pages:     pages,
		referrals: referrals,
		cache:     cache.New(),
		strip:     bluemonday.StrictPolicy(),
		extractor: extractor,
	}
}

func (s *pageService) Exists(name string, includeDeleted bool) (bool, error) {
	name = wiki.NormalizeName(name)
	if name == "" {
		return false, nil
	}

	if _, ok := s.cache.Get(name); ok {
		return true, nil
	}

	rev, err := s.pages.SelectCurrent(name, includeDeleted)
	if err == sql.ErrNoRows {
		return false, nil
	} else if err != nil {
		return false, err
	}

	// Only cache live lookups; an includeDeleted hit may not be a page that
	// is really current.
	if !includeDeleted {
		s.cache.Put(rev)
	}
	return true, nil
}

func (s *pageService) Page(name string) (*wiki.Revision, error) {
	name = wiki.NormalizeName(name)
	if name == "" {
		return nil, wiki.ErrNotFound
	}

	if rev, ok := s.cache.Get(name); ok {
		return rev, nil
	}

	rev, err := s.pages.SelectCurrent(name, false)
	if err == sql.ErrNoRows {
		return nil, wiki.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	s.cache.Put(rev)
	return rev, nil
}

func (s *pageService) PageRevision(name string, number int) (*wiki.Revision, error) {
	name = wiki.NormalizeName(name)
	if name == "" {
		return nil, wiki.ErrNotFound
	}

	rev, err := s.pages.SelectByNumber(name, number)
	if err == sql.ErrNoRows {
		return nil, wiki.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	if rev.IsCurrent() {
		s.cache.Put(rev)
	}
	return rev, nil
}

func (s *pageService) Revision(id int64) (*wiki.Revision, error) {
	rev, err := s.pages.SelectByID(id)
	if err == sql.ErrNoRows {
		return nil, wiki.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	if rev.IsCurrent() {
		s.cache.Put(rev)
	}
	return rev, nil
}

func (s *pageService) Add(rev *wiki.Revision) (*wiki.Revision, error) {
	name := wiki.NormalizeName(rev.PageName)
	if name == "" {
		return nil, wiki.ErrPageNameRequired
	}

	clean := rev.Clone()
	clean.PageName = name
	clean.Message = s.strip.Sanitize(clean.Message)
	clean.Author = s.strip.Sanitize(clean.Author)

	created, err := s.pages.Insert(clean, s.extractor.ExtractLinks(clean.Markup))
	if err != nil {
		return nil, err
	}

	s.cache.Put(created)
	return created, nil
}

func (s *pageService) Move(from, to string) (bool, error) {
	from = wiki.NormalizeName(from)
	to = wiki.NormalizeName(to)
	if to == "" {
		return false, wiki.ErrDestinationRequired
	}

	// Destination collision counts soft-deleted pages too; a move must never
	// splice two histories together.
	taken, err := s.Exists(to, true)
	if err != nil {
		return false, err
	}
	if taken {
		return false, wiki.ErrPageExists
	}

	err = s.pages.Move(from, to)
	if errors.Is(err, wiki.ErrConflict) {
		slog.Warn("page move lost a write race", "from", from, "to", to)
		return false, nil
	} else if err != nil {
		return false, err
	}

	s.cache.Rename(from, to)
	return true, nil
}

func (s *pageService) DeletePage(name string) (int, error) {
	name = wiki.NormalizeName(name)
	if name == "" {
		return 0, nil
	}

	count, err := s.pages.DeletePage(name)
	if errors.Is(err, wiki.ErrConflict) {
		slog.Warn("page delete lost a write race", "page", name)
		return -1, nil
	} else if err != nil {
		return 0, err
	}

	s.cache.Evict(name)
	return count, nil
}

func (s *pageService) DeleteRevision(name string, number int) error {
	name = wiki.NormalizeName(name)
	if name == "" {
		return nil
	}

	promoted, wasCurrent, err := s.pages.DeleteRevision(name, number)
	if err != nil {
		return err
	}

	if wasCurrent {
		s.cache.Evict(name)
		if promoted != nil {
			s.cache.Put(promoted)
		}
	}
	return nil
}

func (s *pageService) Undelete(name string) (bool, error) {
	name = wiki.NormalizeName(name)
	if name == "" {
		return true, nil
	}

	current, err := s.pages.Undelete(name)
	if errors.Is(err, wiki.ErrConflict) {
		slog.Warn("page undelete lost a write race", "page", name)
		return false, nil
	} else if err != nil {
		return false, err
	}

	if current != nil {
		s.cache.Evict(name)
		s.cache.Put(current)
	}
	return true, nil
}

func (s *pageService) FlushCache() error {
	names, err := s.pages.SelectPageNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		s.cache.Evict(name)
	}
	slog.Debug("cache flushed", "pages", len(names))
	return nil
}

func (s *pageService) PrePopulateCache() error {
	revs, err := s.pages.SelectAllCurrent()
	if err != nil {
		return err
	}

	for _, rev := range revs {
		s.cache.Put(rev)
	}
	slog.Info("cache prepopulated", "pages", len(revs))
	return nil
}
