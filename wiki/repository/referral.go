package repository

import "github.com/mirrorwell/pagestore/wiki"

// ReferralRepository defines the read queries over the derived link graph.
// Writes to the Referral table only ever happen inside PageRepository
// transactions, so the edge set for a referrer is always all-or-nothing.
type ReferralRepository interface {
	// SelectByReferrer returns the outbound edges of a page.
	SelectByReferrer(name string) ([]*wiki.Referral, error)

	// SelectByTarget returns the inbound edges pointing at a page.
	SelectByTarget(name string) ([]*wiki.Referral, error)

	// SelectBroken returns edges whose target is not a live page, skipping
	// targets that match any of the given route prefixes.
	SelectBroken(ignorePrefixes []string) ([]*wiki.Referral, error)

	// SelectOrphans returns live pages with no inbound edges, skipping
	// subpages and the given allow-listed names.
	SelectOrphans(allowlist []string) ([]*wiki.Revision, error)

	// SelectSubpages returns live pages nested under the given name.
	SelectSubpages(name string) ([]*wiki.Revision, error)

	// SelectParents returns live pages the given name is nested under.
	SelectParents(name string) ([]*wiki.Revision, error)

	// CountReferrals returns the total number of edges in the graph.
	CountReferrals() (int, error)
}
