// Package links implements the outbound-link extractor the page store uses to
// derive referral edges. Markup is parsed with goldmark for standard markdown
// links; wiki-style single-bracket links are collected from the raw source.
package links

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mirrorwell/pagestore/wiki"
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// excerptRadius bounds how much surrounding text is kept per edge.
const excerptRadius = 40

var bracketLink = regexp.MustCompile(`\[([^\[\]\n]+)\]`)

// Extractor extracts outbound link targets and display excerpts from markup.
type Extractor struct {
	md goldmark.Markdown
}

// NewExtractor creates an Extractor with a lightweight goldmark instance used
// only for parsing, never rendering.
func NewExtractor() *Extractor {
	return &Extractor{md: goldmark.New()}
}

// ExtractLinks parses markup and returns the deduplicated outbound links.
// Targets are either page names (normalized) or external-resource tokens,
// kept verbatim so broken-link reporting can allow-list them by prefix.
func (e *Extractor) ExtractLinks(markup string) []wiki.Link {
	source := []byte(markup)

	seen := make(map[string]struct{})
	var found []wiki.Link
	add := func(target, excerpt string) {
		if !isExternalTarget(target) {
			target = wiki.NormalizeName(target)
		}
		if target == "" {
			return
		}
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		found = append(found, wiki.Link{Target: target, Excerpt: excerpt})
	}

	doc := e.md.Parser().Parse(text.NewReader(source))
	gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch link := n.(type) {
		case *gast.Link:
			add(string(link.Destination), string(link.Text(source)))
		case *gast.AutoLink:
			add(string(link.URL(source)), string(link.Label(source)))
		}
		return gast.WalkContinue, nil
	})

	// Wiki-style [Target] links. Goldmark leaves these as plain text, so they
	// are collected from the raw source, skipping images and the label part
	// of markdown inline links.
	for _, m := range bracketLink.FindAllStringSubmatchIndex(markup, -1) {
		start, end := m[0], m[1]
		if start > 0 && markup[start-1] == '!' {
			continue
		}
		if end < len(markup) && (markup[end] == '(' || markup[end] == '[') {
			continue
		}
		add(markup[m[2]:m[3]], excerptAround(markup, start, end))
	}

	return found
}

// excerptAround returns the text surrounding a link occurrence, clipped to
// the containing line and to rune boundaries.
func excerptAround(markup string, start, end int) string {
	lineStart := strings.LastIndexByte(markup[:start], '\n') + 1
	lineEnd := strings.IndexByte(markup[end:], '\n')
	if lineEnd < 0 {
		lineEnd = len(markup)
	} else {
		lineEnd += end
	}

	from := start - excerptRadius
	if from < lineStart {
		from = lineStart
	}
	to := end + excerptRadius
	if to > lineEnd {
		to = lineEnd
	}

	// The radius is counted in bytes, so either cut may land inside a
	// multibyte rune. Widen to the nearest boundary.
	for from > lineStart && !utf8.RuneStart(markup[from]) {
		from--
	}
	for to < lineEnd && !utf8.RuneStart(markup[to]) {
		to++
	}

	return strings.TrimSpace(markup[from:to])
}

func isExternalTarget(target string) bool {
	return strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:")
}
