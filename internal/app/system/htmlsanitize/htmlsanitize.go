// Package htmlsanitize cleans user-supplied room text before it is stored.
// Descriptions may carry light formatting; titles are plain text.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richOnce sync.Once
	rich     *bluemonday.Policy

	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func richPolicy() *bluemonday.Policy {
	richOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		// Rooms are rendered inside other people's clients; keep links from
		// leaking referrers or gaining page rank.
		p.RequireNoReferrerOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		rich = p
	})
	return rich
}

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Sanitize keeps safe formatting (emphasis, lists, links, images) and drops
// scripts, event handlers, forms, and unsafe URL schemes.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return richPolicy().Sanitize(s)
}

// StripTags removes all markup and trims surrounding space. The result is
// plain text: entities are decoded, so "Q&A" comes back as "Q&A" and never
// as "Q&amp;A". Callers that render it as HTML must escape it again.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy().Sanitize(s)))
}
