// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package section produces a per-section research outline for
// downstream writing. Sections are independent: one failed outline
// never blocks the others.
package section

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/llm"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// defaultPrompt is used when no section prompt is configured.
const defaultPrompt = `You are a research outlining system. Produce a detailed outline for the "{section}" section of a research document on the topic below.

Focus: {focus}
Key concepts: {key_concepts}
Available source material: {source_summary}

Write a numbered outline with concrete points to cover. Plain text only.

Topic: {topic}`

// genericFocus is the directive used when the plan has no entry for a
// requested section.
const genericFocus = "a thorough treatment of the topic as it relates to this section"

// OutlineStore persists section outlines keyed by (session, section).
type OutlineStore interface {
	StoreSectionPlan(ctx context.Context, sessionID, section, outline string) error
}

// Planner is the section planning stage.
type Planner struct {
	gen     llm.Generator
	prompts *config.Provider
	store   OutlineStore
	logger  *zap.Logger
}

// NewPlanner builds a section planner.
func NewPlanner(gen llm.Generator, prompts *config.Provider, store OutlineStore, logger *zap.Logger) *Planner {
	return &Planner{gen: gen, prompts: prompts, store: store, logger: logger}
}

// PlanSections produces an outline for each requested section. The
// prompt combines the plan's directive for the section (or a generic
// default) with a source-type histogram, keeping prompts bounded no
// matter how many sources the search found. A failed section is logged
// and omitted from the result.
func (p *Planner) PlanSections(ctx context.Context, sessionID, topic string, plan types.PlanResult, sources []types.AcademicSource, sections []string) map[string]string {
	histogram := sourceHistogram(sources)
	outlines := make(map[string]string)

	for _, section := range sections {
		outline, err := p.planOne(ctx, topic, section, plan, histogram)
		if err != nil {
			p.logger.Warn("section outline failed, continuing with remaining sections",
				zap.String("session_id", sessionID),
				zap.String("section", section),
				zap.Error(err),
			)
			continue
		}

		outlines[section] = outline
		if err := p.store.StoreSectionPlan(ctx, sessionID, section, outline); err != nil {
			p.logger.Warn("persisting section outline failed",
				zap.String("section", section),
				zap.Error(err),
			)
		}
	}
	return outlines
}

func (p *Planner) planOne(ctx context.Context, topic, section string, plan types.PlanResult, histogram string) (string, error) {
	focus := genericFocus
	keyConcepts := ""
	if plan.Ok() {
		if directive, ok := plan.Plan.SectionResearch[section]; ok {
			if directive.Focus != "" {
				focus = directive.Focus
			}
			keyConcepts = strings.Join(directive.KeyConcepts, ", ")
		}
	}

	promptText := defaultPrompt
	temperature := float32(0.4)
	maxTokens := 1500
	if pc, ok := p.prompts.Prompt("section", ""); ok {
		promptText = pc.Text
		temperature = pc.Temperature
		if pc.MaxTokens > 0 {
			maxTokens = pc.MaxTokens
		}
	}

	replacer := strings.NewReplacer(
		"{section}", section,
		"{focus}", focus,
		"{key_concepts}", keyConcepts,
		"{source_summary}", histogram,
		"{topic}", topic,
	)

	outline, err := p.gen.Generate(ctx, llm.Request{
		Prompt:      replacer.Replace(promptText),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generating outline for %q: %w", section, err)
	}
	return strings.TrimSpace(outline), nil
}

// sourceHistogram renders counts per source type, e.g.
// "academic_paper: 7, web_page: 3". Deterministic order.
func sourceHistogram(sources []types.AcademicSource) string {
	counts := make(map[types.SourceType]int)
	for _, s := range sources {
		counts[s.SourceType]++
	}
	if len(counts) == 0 {
		return "none"
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s: %d", k, counts[types.SourceType(k)]))
	}
	return strings.Join(parts, ", ")
}
