// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// now is the clock used for access dates. Tests substitute a fixed time.
var now = time.Now

// Fallback produces the deterministic citation for a source in a style.
// Each style has a paper and a web variant; every variant embeds the
// source URL verbatim so references stay resolvable without model help.
func Fallback(style types.Style, src types.AcademicSource) types.Citation {
	var formatted, inText string
	if src.SourceType == types.SourceAcademicPaper {
		formatted, inText = paperTemplate(style, src)
	} else {
		formatted, inText = webTemplate(style, src)
	}
	return types.Citation{
		Style:      style,
		SourceID:   src.ID,
		Formatted:  formatted,
		InText:     inText,
		SourceData: src,
	}
}

func paperTemplate(style types.Style, src types.AcademicSource) (string, string) {
	authors := joinAuthors(src.Authors)
	year := yearOr(src.PublicationYear, "n.d.")
	venue := src.PublicationVenue
	lead := leadName(src)

	switch style {
	case types.StyleAPA:
		head := src.Title
		if authors != "" {
			head = fmt.Sprintf("%s (%s). %s", authors, year, src.Title)
		} else {
			head = fmt.Sprintf("%s. (%s)", src.Title, year)
		}
		formatted := fmt.Sprintf("%s. %s. %s", head, venue, src.URL)
		return collapse(formatted), fmt.Sprintf("(%s, %s)", lead, year)

	case types.StyleMLA:
		head := quoted(src.Title)
		if authors != "" {
			head = authors + ". " + head
		}
		formatted := fmt.Sprintf("%s %s, %s, %s.", head, venue, year, src.URL)
		return collapse(formatted), fmt.Sprintf("(%s)", lead)

	case types.StyleChicago:
		head := quoted(src.Title)
		if authors != "" {
			head = authors + ". " + head
		}
		formatted := fmt.Sprintf("%s %s (%s). %s.", head, venue, year, src.URL)
		return collapse(formatted), fmt.Sprintf("(%s %s)", lead, year)

	default: // Harvard
		head := src.Title
		if authors != "" {
			head = fmt.Sprintf("%s %s, '%s'", authors, year, src.Title)
		} else {
			head = fmt.Sprintf("'%s' %s", src.Title, year)
		}
		formatted := fmt.Sprintf("%s, %s, <%s>.", head, venue, src.URL)
		return collapse(formatted), fmt.Sprintf("(%s %s)", lead, year)
	}
}

func webTemplate(style types.Style, src types.AcademicSource) (string, string) {
	year := yearOr(src.PublicationYear, "n.d.")
	accessed := now().Format("2 January 2006")
	lead := leadName(src)

	switch style {
	case types.StyleAPA:
		formatted := fmt.Sprintf("%s. (%s). Retrieved %s, from %s", src.Title, year, accessed, src.URL)
		return formatted, fmt.Sprintf("(%s, %s)", lead, year)

	case types.StyleMLA:
		formatted := fmt.Sprintf("%s %s. Accessed %s.", quoted(src.Title), src.URL, accessed)
		return formatted, fmt.Sprintf("(%s)", quoted(lead))

	case types.StyleChicago:
		formatted := fmt.Sprintf("%s Accessed %s. %s.", quoted(src.Title), accessed, src.URL)
		return formatted, fmt.Sprintf("(%s)", quoted(lead))

	default: // Harvard
		formatted := fmt.Sprintf("%s %s, viewed %s, <%s>.", src.Title, year, accessed, src.URL)
		return formatted, fmt.Sprintf("(%s %s)", lead, year)
	}
}

// joinAuthors renders the author list: one name as-is, two joined with
// "and", more as "first et al."
func joinAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " and " + authors[1]
	default:
		return authors[0] + " et al."
	}
}

// leadName returns the in-text handle: first author's surname when
// available, otherwise a shortened title.
func leadName(src types.AcademicSource) string {
	if len(src.Authors) > 0 {
		fields := strings.Fields(src.Authors[0])
		if len(fields) > 0 {
			return fields[len(fields)-1]
		}
	}
	return shortTitle(src.Title)
}

// shortTitle returns the first few words of a title.
func shortTitle(title string) string {
	fields := strings.Fields(title)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func yearOr(year, fallback string) string {
	if year == "" {
		return fallback
	}
	return year
}

func quoted(s string) string {
	return `"` + strings.TrimSuffix(s, ".") + `."`
}

// collapse tidies artifacts from empty fields: doubled separators and
// stray spaces left where a venue or author block was missing.
func collapse(s string) string {
	s = strings.ReplaceAll(s, " ,", ",")
	s = strings.ReplaceAll(s, ", ,", ",")
	s = strings.ReplaceAll(s, ". .", ".")
	s = strings.ReplaceAll(s, "  ", " ")
	s = strings.ReplaceAll(s, ",,", ",")
	return strings.TrimSpace(s)
}
