// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package section

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/llm"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// scriptedGenerator fails for prompts containing a trigger substring.
type scriptedGenerator struct {
	failOn  string
	prompts []string
}

func (s *scriptedGenerator) Generate(_ context.Context, req llm.Request) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	if s.failOn != "" && strings.Contains(req.Prompt, s.failOn) {
		return "", errors.New("model unavailable")
	}
	return "1. outline point\n2. another point", nil
}

type memOutlineStore struct {
	outlines map[string]string
}

func (m *memOutlineStore) StoreSectionPlan(_ context.Context, _ string, section, outline string) error {
	if m.outlines == nil {
		m.outlines = map[string]string{}
	}
	m.outlines[section] = outline
	return nil
}

func testPlanner(t *testing.T, gen llm.Generator, store OutlineStore) *Planner {
	t.Helper()
	prompts, err := config.NewProvider(types.PipelineConfig{})
	require.NoError(t, err)
	return NewPlanner(gen, prompts, store, zap.NewNop())
}

func directivePlan() types.PlanResult {
	return types.PlanResult{
		Plan: &types.ResearchPlan{
			SectionResearch: map[string]types.SectionDirective{
				"background": {Focus: "historical development of QEC", KeyConcepts: []string{"stabilizers", "thresholds"}},
			},
		},
	}
}

func TestPlanSectionsUsesDirectiveFocus(t *testing.T) {
	gen := &scriptedGenerator{}
	store := &memOutlineStore{}
	p := testPlanner(t, gen, store)

	outlines := p.PlanSections(context.Background(), "sess", "qec", directivePlan(), nil, []string{"background"})

	require.Len(t, outlines, 1)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "historical development of QEC")
	assert.Contains(t, gen.prompts[0], "stabilizers, thresholds")
	assert.Equal(t, outlines["background"], store.outlines["background"])
}

func TestPlanSectionsGenericFocusWhenPlanSilent(t *testing.T) {
	gen := &scriptedGenerator{}
	p := testPlanner(t, gen, &memOutlineStore{})

	p.PlanSections(context.Background(), "sess", "qec", directivePlan(), nil, []string{"conclusion"})
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], genericFocus)
}

func TestPlanSectionsDegradedPlanStillWorks(t *testing.T) {
	gen := &scriptedGenerator{}
	p := testPlanner(t, gen, &memOutlineStore{})

	outlines := p.PlanSections(context.Background(), "sess", "qec",
		types.PlanResult{Degraded: true}, nil, []string{"introduction"})
	assert.Len(t, outlines, 1)
}

func TestPlanSectionsOneFailureDoesNotBlockOthers(t *testing.T) {
	gen := &scriptedGenerator{failOn: `"analysis"`}
	store := &memOutlineStore{}
	p := testPlanner(t, gen, store)

	outlines := p.PlanSections(context.Background(), "sess", "qec", types.PlanResult{}, nil,
		[]string{"introduction", "analysis", "conclusion"})

	assert.Len(t, outlines, 2)
	assert.Contains(t, outlines, "introduction")
	assert.Contains(t, outlines, "conclusion")
	assert.NotContains(t, outlines, "analysis")
	assert.NotContains(t, store.outlines, "analysis")
}

func TestSourceHistogram(t *testing.T) {
	sources := []types.AcademicSource{
		{SourceType: types.SourceAcademicPaper},
		{SourceType: types.SourceAcademicPaper},
		{SourceType: types.SourceWebPage},
	}
	assert.Equal(t, "academic_paper: 2, web_page: 1", sourceHistogram(sources))
	assert.Equal(t, "none", sourceHistogram(nil))

	gen := &scriptedGenerator{}
	p := testPlanner(t, gen, &memOutlineStore{})
	p.PlanSections(context.Background(), "sess", "qec", types.PlanResult{}, sources, []string{"intro"})
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "academic_paper: 2, web_page: 1")
}
