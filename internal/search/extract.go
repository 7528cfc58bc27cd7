// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// yearRe matches a 4-digit publication year.
var yearRe = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)

// academicHosts mark URLs that almost certainly point at papers.
var academicHosts = []string{
	"arxiv.org",
	"doi.org",
	"semanticscholar.org",
	"ncbi.nlm.nih.gov",
	"pubmed",
	"researchgate.net",
	"springer.com",
	"sciencedirect.com",
	"ieee.org",
	"acm.org",
	"jstor.org",
	"nature.com",
}

// ExtractSources normalizes raw engine results into AcademicSources,
// deduplicated by URL across engines. Results without a link are
// skipped. Output order is deterministic (by URL).
func ExtractSources(resultsByEngine map[string][]types.RawSearchResult) []types.AcademicSource {
	byURL := make(map[string]types.AcademicSource)

	engines := make([]string, 0, len(resultsByEngine))
	for name := range resultsByEngine {
		engines = append(engines, name)
	}
	sort.Strings(engines)

	for _, engine := range engines {
		for _, r := range resultsByEngine[engine] {
			if r.Link == "" {
				continue
			}
			if existing, ok := byURL[r.Link]; ok {
				// First engine wins; fill gaps only.
				if existing.Title == "" {
					existing.Title = r.Title
				}
				if existing.Snippet == "" {
					existing.Snippet = r.Snippet
				}
				byURL[r.Link] = existing
				continue
			}
			byURL[r.Link] = normalize(r)
		}
	}

	urls := make([]string, 0, len(byURL))
	for u := range byURL {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	sources := make([]types.AcademicSource, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, byURL[u])
	}
	return sources
}

// normalize converts one raw result into an AcademicSource.
func normalize(r types.RawSearchResult) types.AcademicSource {
	return types.AcademicSource{
		Title:           strings.TrimSpace(r.Title),
		URL:             r.Link,
		SourceType:      classify(r),
		PublicationYear: extractYear(r.Title + " " + r.Snippet),
		PublicationVenue: venueFromURL(r.Link),
		Snippet:         strings.TrimSpace(r.Snippet),
	}
}

// classify guesses the source type from the URL and title.
func classify(r types.RawSearchResult) types.SourceType {
	link := strings.ToLower(r.Link)

	for _, host := range academicHosts {
		if strings.Contains(link, host) {
			return types.SourceAcademicPaper
		}
	}
	if strings.HasSuffix(link, ".pdf") || strings.Contains(link, "/pdf/") {
		return types.SourceAcademicPaper
	}
	if strings.Contains(link, ".edu/") || strings.HasSuffix(link, ".edu") {
		return types.SourceInstitutional
	}
	if strings.Contains(link, ".gov/") || strings.HasSuffix(link, ".gov") {
		return types.SourceGovernment
	}
	return types.SourceWebPage
}

// extractYear finds the first 4-digit year (19xx or 20xx) in the text.
func extractYear(text string) string {
	m := yearRe.FindStringSubmatch(text)
	if len(m) >= 2 {
		return m[1]
	}
	return ""
}

// venueFromURL returns the bare host name as a venue hint, without the
// scheme or a www prefix.
func venueFromURL(link string) string {
	rest := link
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimPrefix(rest, "www.")
}
