// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation builds formatted and in-text citations for every
// usable source in all supported styles. The primary style prefers
// model-generated formatting; deterministic templates cover every
// failure and the three non-primary styles.
// See docs/ARCHITECTURE.md § Citations.
package citation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/jsonx"
	"github.com/pdiddy/research-pipeline/internal/llm"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// defaultPaperPrompt formats an academic paper in the primary style.
const defaultPaperPrompt = `You are a bibliographic formatting system. Format a citation for the following academic paper in %s style.

Respond with a single JSON object and no other text:
{"reference_list_entry": "<the full reference list entry>", "in_text_citation": {"information_prominent": "<the parenthetical in-text citation>"}}

Title: {title}
Authors: {authors}
Year: {year}
Venue: {venue}
URL: {url}`

// defaultWebPrompt formats a web page in the primary style. Web pages
// are cited by title and access date only.
const defaultWebPrompt = `You are a bibliographic formatting system. Format a citation for the following web page in %s style, citing by title and access date.

Respond with a single JSON object and no other text:
{"reference_list_entry": "<the full reference list entry>", "in_text_citation": {"information_prominent": "<the parenthetical in-text citation>"}}

Title: {title}
Year: {year}
URL: {url}
Access date: {access_date}`

// modelCitation is the JSON shape the model is asked to return.
type modelCitation struct {
	ReferenceListEntry string `json:"reference_list_entry"`
	InTextCitation     struct {
		InformationProminent string `json:"information_prominent"`
	} `json:"in_text_citation"`
}

// CitationStore persists citations keyed by (style, source id).
type CitationStore interface {
	StoreCitations(ctx context.Context, sessionID string, byStyle map[types.Style][]types.Citation) error
}

// Formatter is the citation formatting stage.
type Formatter struct {
	gen     llm.Generator
	prompts *config.Provider
	store   CitationStore
	logger  *zap.Logger
}

// NewFormatter builds a citation formatter.
func NewFormatter(gen llm.Generator, prompts *config.Provider, store CitationStore, logger *zap.Logger) *Formatter {
	return &Formatter{gen: gen, prompts: prompts, store: store, logger: logger}
}

// Format produces citations in all four styles for every source with a
// title and URL, persists them, and returns them grouped by style. The
// primary style goes through the model with a deterministic fallback;
// the other styles always use their templates. A (style, source id)
// seen-set guards every insert, so each citable source ends up with
// exactly one citation per style.
func (f *Formatter) Format(ctx context.Context, sessionID string, sources []types.AcademicSource) (map[types.Style][]types.Citation, error) {
	primary := f.prompts.EnabledStyle()
	byStyle := make(map[types.Style][]types.Citation)
	seen := make(map[string]bool)

	insert := func(c types.Citation) {
		key := string(c.Style) + "|" + c.SourceID
		if seen[key] {
			return
		}
		seen[key] = true
		byStyle[c.Style] = append(byStyle[c.Style], c)
	}

	for _, src := range sources {
		if !src.Usable() {
			continue
		}

		if c, ok := f.formatWithModel(ctx, primary, src); ok {
			insert(c)
		} else {
			insert(Fallback(primary, src))
		}

		for _, style := range types.AllStyles() {
			if style == primary {
				continue
			}
			insert(Fallback(style, src))
		}
	}

	if err := f.store.StoreCitations(ctx, sessionID, byStyle); err != nil {
		return nil, fmt.Errorf("persisting citations: %w", err)
	}
	return byStyle, nil
}

// formatWithModel attempts the model path for one source in the primary
// style. Any failure (call error, undecodable JSON, missing fields)
// reports false and leaves the fallback to the caller.
func (f *Formatter) formatWithModel(ctx context.Context, style types.Style, src types.AcademicSource) (types.Citation, bool) {
	prompt, temperature, maxTokens := f.buildPrompt(style, src)

	text, err := f.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		f.logger.Warn("citation model call failed, using template",
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		return types.Citation{}, false
	}

	var parsed modelCitation
	if err := jsonx.ExtractObject(text, &parsed); err != nil {
		f.logger.Warn("citation model output did not decode, using template",
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		return types.Citation{}, false
	}
	if parsed.ReferenceListEntry == "" || parsed.InTextCitation.InformationProminent == "" {
		f.logger.Warn("citation model output missing fields, using template",
			zap.String("source_id", src.ID),
		)
		return types.Citation{}, false
	}

	return types.Citation{
		Style:      style,
		SourceID:   src.ID,
		Formatted:  parsed.ReferenceListEntry,
		InText:     parsed.InTextCitation.InformationProminent,
		SourceData: src,
	}, true
}

// buildPrompt selects the paper or web prompt by source type and fills
// in the source fields.
func (f *Formatter) buildPrompt(style types.Style, src types.AcademicSource) (string, float32, int) {
	sub := "web_page"
	template := fmt.Sprintf(defaultWebPrompt, style)
	if src.SourceType == types.SourceAcademicPaper {
		sub = "academic_paper"
		template = fmt.Sprintf(defaultPaperPrompt, style)
	}

	temperature := float32(0.1)
	maxTokens := 400
	if pc, ok := f.prompts.Prompt("citation", sub); ok {
		template = pc.Text
		temperature = pc.Temperature
		if pc.MaxTokens > 0 {
			maxTokens = pc.MaxTokens
		}
	}

	replacer := strings.NewReplacer(
		"{title}", src.Title,
		"{authors}", joinAuthors(src.Authors),
		"{year}", yearOr(src.PublicationYear, "unknown"),
		"{venue}", src.PublicationVenue,
		"{url}", src.URL,
		"{access_date}", now().Format("2 January 2006"),
		"{style}", string(style),
	)
	return replacer.Replace(template), temperature, maxTokens
}
