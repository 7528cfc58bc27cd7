// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

func planWithQueries(areaQueries, sectionQueries []string) types.PlanResult {
	return types.PlanResult{
		Plan: &types.ResearchPlan{
			ResearchAreas: []types.ResearchArea{
				{Area: "a", SearchQueries: areaQueries},
			},
			SectionResearch: map[string]types.SectionDirective{
				"introduction": {SearchQueries: sectionQueries},
			},
		},
	}
}

func TestPoolQueriesDedupAndOrder(t *testing.T) {
	plan := planWithQueries(
		[]string{"quantum codes", "qec", "surface code threshold estimates"},
		[]string{"qec", "quantum codes history"},
	)

	pool := PoolQueries(plan)
	// Exact duplicates removed, shortest first, ties lexicographic.
	assert.Equal(t, []string{
		"qec",
		"quantum codes",
		"quantum codes history",
		"surface code threshold estimates",
	}, pool)
}

func TestPoolQueriesSkipsEmptyStrings(t *testing.T) {
	pool := PoolQueries(planWithQueries([]string{"", "a"}, nil))
	assert.Equal(t, []string{"a"}, pool)
}

func TestPoolQueriesDegradedPlanIsEmpty(t *testing.T) {
	pool := PoolQueries(types.PlanResult{Degraded: true, RawResponse: "junk"})
	assert.Empty(t, pool)
}

func TestFallbackQueries(t *testing.T) {
	queries := FallbackQueries("ocean acidification")
	require.Len(t, queries, maxFallbackQueries)
	assert.Contains(t, queries, "ocean acidification filetype:pdf")
	assert.Contains(t, queries, "ocean acidification research paper")
	assert.Contains(t, queries, "ocean acidification literature review")
	assert.Contains(t, queries, "ocean acidification meta-analysis")
	assert.Contains(t, queries, "ocean acidification case study")

	assert.Empty(t, FallbackQueries(""))
}

func TestBroadeningQueries(t *testing.T) {
	queries := BroadeningQueries("topic")
	assert.Equal(t, []string{
		"topic pdf", "topic research", "topic study", "topic analysis", "topic overview",
	}, queries)
}
