// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences the research stages for one session:
// moderation, planning, search, content extraction, citations, and
// section outlines. Each stage persists its output before the next
// begins, so any stage can be re-run for a session id.
// See docs/ARCHITECTURE.md § Pipeline.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/citation"
	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/content"
	"github.com/pdiddy/research-pipeline/internal/moderation"
	"github.com/pdiddy/research-pipeline/internal/plan"
	"github.com/pdiddy/research-pipeline/internal/search"
	"github.com/pdiddy/research-pipeline/internal/section"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// DefaultSections are the outlined sections when the caller does not
// request specific ones.
var DefaultSections = []string{"introduction", "background", "analysis", "conclusion"}

// Store is the persistence surface the pipeline itself uses; stages
// carry their own narrower store interfaces.
type Store interface {
	CreateSession(ctx context.Context, topic string, questions []string) (string, error)
	StorePlan(ctx context.Context, sessionID string, result types.PlanResult) error
	StoreSources(ctx context.Context, sessionID string, sources []types.AcademicSource) ([]string, error)
}

// Result is the envelope returned for every research run. It always
// carries the session id, topic, and whatever partial results were
// produced; Error is set only on moderation rejection or a fatal
// condition.
type Result struct {
	SessionID     string                           `json:"session_id" yaml:"session_id"`
	Topic         string                           `json:"topic" yaml:"topic"`
	IsAppropriate bool                             `json:"is_appropriate" yaml:"is_appropriate"`
	Reason        string                           `json:"reason,omitempty" yaml:"reason,omitempty"`
	ResearchPlan  types.PlanResult                 `json:"research_plan" yaml:"research_plan"`
	Sources       []types.AcademicSource           `json:"sources" yaml:"sources"`
	Citations     map[types.Style][]types.Citation `json:"citations,omitempty" yaml:"citations,omitempty"`
	PrimaryStyle  types.Style                      `json:"primary_citation_style" yaml:"primary_citation_style"`
	SectionPlans  map[string]string                `json:"section_plans,omitempty" yaml:"section_plans,omitempty"`
	Error         string                           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	store     Store
	gate      *moderation.Gate
	planner   *plan.Planner
	search    *search.Orchestrator
	extractor *content.Extractor
	citations *citation.Formatter
	sections  *section.Planner
	prompts   *config.Provider
	logger    *zap.Logger
}

// New builds a pipeline from its stages.
func New(store Store, gate *moderation.Gate, planner *plan.Planner, orchestrator *search.Orchestrator, extractor *content.Extractor, citations *citation.Formatter, sections *section.Planner, prompts *config.Provider, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		gate:      gate,
		planner:   planner,
		search:    orchestrator,
		extractor: extractor,
		citations: citations,
		sections:  sections,
		prompts:   prompts,
		logger:    logger,
	}
}

// ConductResearch runs the full pipeline for a topic. The returned
// Result is non-nil whenever a session was created, even on a fatal
// error, so callers always get the session id and any partial output.
func (p *Pipeline) ConductResearch(ctx context.Context, topic string, questions []string, sections []string) (*Result, error) {
	sessionID, err := p.store.CreateSession(ctx, topic, questions)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	res := &Result{
		SessionID:    sessionID,
		Topic:        topic,
		PrimaryStyle: p.prompts.EnabledStyle(),
	}

	p.logger.Info("research session started",
		zap.String("session_id", sessionID),
		zap.String("topic", topic),
	)

	ok, reason := p.gate.Moderate(ctx, topic)
	res.IsAppropriate = ok
	res.Reason = reason
	if !ok {
		res.Error = "topic rejected by moderation: " + reason
		return res, nil
	}

	res.ResearchPlan = p.planner.Plan(ctx, topic, questions)
	if err := p.store.StorePlan(ctx, sessionID, res.ResearchPlan); err != nil {
		p.logger.Warn("persisting plan failed", zap.Error(err))
	}

	searchOut, err := p.search.Search(ctx, sessionID, topic, res.ResearchPlan)
	if err != nil {
		res.Error = err.Error()
		return res, fmt.Errorf("search stage: %w", err)
	}
	res.Sources = searchOut.Sources

	enriched := p.extractor.ProcessBatch(ctx, sessionID, searchOut.Sources)
	if _, err := p.store.StoreSources(ctx, sessionID, enriched); err != nil {
		p.logger.Warn("persisting enriched sources failed", zap.Error(err))
	}
	res.Sources = enriched

	citations, err := p.citations.Format(ctx, sessionID, enriched)
	if err != nil {
		p.logger.Warn("citation stage failed, continuing without citations", zap.Error(err))
	} else {
		res.Citations = citations
	}

	if len(sections) == 0 {
		sections = DefaultSections
	}
	res.SectionPlans = p.sections.PlanSections(ctx, sessionID, topic, res.ResearchPlan, enriched, sections)

	p.logger.Info("research session complete",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(res.Sources)),
		zap.Int("sections", len(res.SectionPlans)),
	)
	return res, nil
}
