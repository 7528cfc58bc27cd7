// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RawSearchResult is one organic result as returned by a search engine.
// Raw results are transient: they are deduplicated and normalized into
// AcademicSources and never persisted directly.
type RawSearchResult struct {
	Link    string `json:"link" yaml:"link"`
	Title   string `json:"title" yaml:"title"`
	Snippet string `json:"snippet" yaml:"snippet"`
	Engine  string `json:"engine" yaml:"engine"`
}

// SourceType classifies an AcademicSource by what kind of document its
// URL appears to point at.
type SourceType string

const (
	SourceAcademicPaper SourceType = "academic_paper"
	SourceInstitutional SourceType = "institutional"
	SourceGovernment    SourceType = "government"
	SourceWebPage       SourceType = "web_page"
)

// AcademicSource is a normalized search result believed to be a usable
// reference. Within a session there is exactly one AcademicSource per
// distinct URL, irrespective of how many queries or engines surfaced it.
type AcademicSource struct {
	// ID is the store-assigned identifier ("src-<uuid>"). Empty until
	// the source has been persisted.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`

	// Authors lists author names when they could be recovered from the
	// result metadata. Often empty for web results.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// PublicationYear is the four-digit year, or empty when unknown.
	PublicationYear string `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`

	// PublicationVenue is the journal, conference, or site name.
	PublicationVenue string `json:"publication_venue,omitempty" yaml:"publication_venue,omitempty"`

	SourceType SourceType `json:"source_type" yaml:"source_type"`
	Snippet    string     `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// FullContent is the extracted page text, when content extraction
	// ran for this source.
	FullContent string `json:"full_content,omitempty" yaml:"full_content,omitempty"`

	// ChunkIDs reference the stored ContentChunks of FullContent.
	ChunkIDs []string `json:"chunk_ids,omitempty" yaml:"chunk_ids,omitempty"`
}

// Usable reports whether the source carries enough metadata to cite.
func (s AcademicSource) Usable() bool {
	return s.Title != "" && s.URL != ""
}

// ContentChunk is one segment of a source's full content. Chunks are
// ordered by Offset and may overlap by a fixed window.
type ContentChunk struct {
	ID       string `json:"id" yaml:"id"`
	SourceID string `json:"source_id" yaml:"source_id"`
	Text     string `json:"text" yaml:"text"`
	Offset   int    `json:"offset" yaml:"offset"`
}
