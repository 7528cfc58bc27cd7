// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Style is a named bibliographic formatting convention. One style is
// designated primary per deployment (default Harvard).
type Style string

const (
	StyleAPA     Style = "apa"
	StyleMLA     Style = "mla"
	StyleChicago Style = "chicago"
	StyleHarvard Style = "harvard"
)

// AllStyles returns the supported citation styles in a fixed order.
func AllStyles() []Style {
	return []Style{StyleAPA, StyleMLA, StyleChicago, StyleHarvard}
}

// ParseStyle maps a configuration value to a Style. Unknown values
// fall back to Harvard.
func ParseStyle(name string) Style {
	switch Style(name) {
	case StyleAPA, StyleMLA, StyleChicago, StyleHarvard:
		return Style(name)
	default:
		return StyleHarvard
	}
}

// Citation is one formatted reference for a source in a given style.
// Within a session there is exactly one Citation per (style, source id)
// pair for every citable source.
type Citation struct {
	Style    Style  `json:"style" yaml:"style"`
	SourceID string `json:"source_id" yaml:"source_id"`

	// Formatted is the reference-list entry.
	Formatted string `json:"formatted_citation" yaml:"formatted_citation"`

	// InText is the information-prominent in-text form, e.g. "(Smith 2021)".
	InText string `json:"in_text_citation" yaml:"in_text_citation"`

	// SourceData snapshots the source metadata the citation was built from.
	SourceData AcademicSource `json:"source_data" yaml:"source_data"`
}

// SectionPlan is a per-section research outline used by downstream
// writing.
type SectionPlan struct {
	SectionName string `json:"section_name" yaml:"section_name"`
	Outline     string `json:"outline_text" yaml:"outline_text"`
}
