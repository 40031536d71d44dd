package wiki

// Referral is a directed link edge derived from the current markup of the
// referrer page. Edges never reference a specific revision; they always
// reflect whatever revision is current.
type Referral struct {
	ID       int64  `db:"id"`
	Referrer string `db:"referrer"`
	Referral string `db:"referral"`
	Excerpt  string `db:"excerpt"`
}

// Link is a single outbound link found in page markup, as produced by the
// link extractor.
type Link struct {
	Target  string
	Excerpt string
}

// LinkExtractor extracts outbound links from raw page markup. The renderer
// that produces HTML lives elsewhere; only this contract matters to the store.
type LinkExtractor interface {
	ExtractLinks(markup string) []Link
}
