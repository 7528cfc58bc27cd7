// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ResearchArea is one thematic slice of a research plan, with candidate
// search queries and the concepts the model considered central to it.
type ResearchArea struct {
	Area          string   `json:"area" yaml:"area"`
	Description   string   `json:"description" yaml:"description"`
	SearchQueries []string `json:"search_queries" yaml:"search_queries"`
	SourceTypes   []string `json:"source_types,omitempty" yaml:"source_types,omitempty"`
	KeyConcepts   []string `json:"key_concepts,omitempty" yaml:"key_concepts,omitempty"`
	Perspectives  []string `json:"perspectives,omitempty" yaml:"perspectives,omitempty"`
}

// SectionDirective carries the per-section research focus within a plan.
type SectionDirective struct {
	Focus         string   `json:"focus" yaml:"focus"`
	SearchQueries []string `json:"search_queries" yaml:"search_queries"`
	KeyConcepts   []string `json:"key_concepts,omitempty" yaml:"key_concepts,omitempty"`
}

// ResearchPlan is the structured breakdown of a topic into research
// areas and section-specific directives.
type ResearchPlan struct {
	ResearchAreas   []ResearchArea              `json:"research_areas" yaml:"research_areas"`
	SectionResearch map[string]SectionDirective `json:"section_specific_research,omitempty" yaml:"section_specific_research,omitempty"`
}

// PlanResult is the outcome of the planning stage. Planning never fails
// the pipeline: when the model output cannot be decoded the result is
// marked Degraded and carries the raw response, and downstream stages
// fall back to topic-derived queries. Callers must check Ok before
// using Plan.
type PlanResult struct {
	Plan        *ResearchPlan `json:"plan,omitempty" yaml:"plan,omitempty"`
	Degraded    bool          `json:"degraded" yaml:"degraded"`
	Err         string        `json:"error,omitempty" yaml:"error,omitempty"`
	RawResponse string        `json:"raw_response,omitempty" yaml:"raw_response,omitempty"`
}

// Ok reports whether the result carries a usable plan.
func (r PlanResult) Ok() bool {
	return !r.Degraded && r.Plan != nil
}

// Queries returns every search query from all research areas and
// section directives, in plan order. Empty for a degraded result.
func (r PlanResult) Queries() []string {
	if !r.Ok() {
		return nil
	}
	var queries []string
	for _, area := range r.Plan.ResearchAreas {
		queries = append(queries, area.SearchQueries...)
	}
	for _, directive := range r.Plan.SectionResearch {
		queries = append(queries, directive.SearchQueries...)
	}
	return queries
}
