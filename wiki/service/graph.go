package service

import "github.com/mirrorwell/pagestore/wiki"

// Link-graph queries for pageService.

// orphanAllowlist names the structurally required root pages. They exist to
// be listing entry points, so nothing is expected to link to them.
var orphanAllowlist = []string{
	"HomePage",
	"Categories",
	"Systems",
	"Media",
	"RecentChanges",
	"SandBox",
}

// nonPagePrefixes are referral targets that are routed outside the wiki
// (external resources, numeric-id content, user and forum routes) and so are
// never broken links even though no page carries their name.
var nonPagePrefixes = []string{
	"http://",
	"https://",
	"mailto:",
	"article/",
	"video/",
	"user/",
	"forum/",
}

func (s *pageService) Orphans() ([]*wiki.Revision, error) {
	return s.referrals.SelectOrphans(orphanAllowlist)
}

func (s *pageService) BrokenLinks() ([]*wiki.Referral, error) {
	return s.referrals.SelectBroken(nonPagePrefixes)
}

func (s *pageService) SubpagesOf(name string) ([]*wiki.Revision, error) {
	name = wiki.NormalizeName(name)
	if name == "" {
		return nil, nil
	}
	return s.referrals.SelectSubpages(name)
}

func (s *pageService) ParentsOf(name string) ([]*wiki.Revision, error) {
	name = wiki.NormalizeName(name)
	if name == "" {
		return nil, nil
	}
	return s.referrals.SelectParents(name)
}

func (s *pageService) Backlinks(name string) ([]*wiki.Referral, error) {
	return s.referrals.SelectByTarget(wiki.NormalizeName(name))
}

func (s *pageService) ReferralsFrom(name string) ([]*wiki.Referral, error) {
	return s.referrals.SelectByReferrer(wiki.NormalizeName(name))
}

func (s *pageService) ReferralCount() (int, error) {
	return s.referrals.CountReferrals()
}
