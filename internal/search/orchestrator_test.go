// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// stubEngine returns canned results per query, recording what ran.
type stubEngine struct {
	name    string
	results map[string][]types.RawSearchResult
	err     error

	mu      sync.Mutex
	queries []string
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Search(_ context.Context, query string, _ int) ([]types.RawSearchResult, error) {
	e.mu.Lock()
	e.queries = append(e.queries, query)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.results[query], nil
}

// memSourceStore records stored sources and assigns sequential ids.
type memSourceStore struct {
	mu      sync.Mutex
	sources []types.AcademicSource
}

func (m *memSourceStore) StoreSources(_ context.Context, _ string, sources []types.AcademicSource) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(sources))
	for i := range sources {
		ids[i] = fmt.Sprintf("src-%d", len(m.sources)+i)
	}
	m.sources = append(m.sources, sources...)
	return ids, nil
}

func searchCfg(engines ...string) types.SearchConfig {
	cfg := types.SearchConfig{
		CallBudget:      4,
		ResultsPerQuery: 10,
		Engines:         map[string]types.EngineConfig{},
	}
	for _, name := range engines {
		cfg.Engines[name] = types.EngineConfig{Enabled: true}
	}
	return cfg
}

func result(link, title string) types.RawSearchResult {
	return types.RawSearchResult{Link: link, Title: title}
}

func TestSearchDedupAcrossEngines(t *testing.T) {
	shared := result("https://a.example/paper", "Shared Paper")
	web := &stubEngine{name: "web", results: map[string][]types.RawSearchResult{
		"q1": {shared, result("https://b.example", "B")},
	}}
	scholar := &stubEngine{name: "scholar", results: map[string][]types.RawSearchResult{
		"q1": {shared},
	}}

	store := &memSourceStore{}
	o := NewOrchestrator([]Engine{web, scholar}, searchCfg("web", "scholar"), store, zap.NewNop())

	out, err := o.Search(context.Background(), "sess", "topic", planWithQueries([]string{"q1"}, nil))
	require.NoError(t, err)

	count := 0
	for _, s := range out.Sources {
		if s.URL == "https://a.example/paper" {
			count++
		}
	}
	assert.Equal(t, 1, count, "one AcademicSource per distinct URL")
	assert.Len(t, out.Sources, 2)
	for _, s := range out.Sources {
		assert.NotEmpty(t, s.ID, "persisted sources carry store-assigned ids")
	}
}

func TestSearchFallbackQueriesOnEmptyPlan(t *testing.T) {
	web := &stubEngine{name: "web", results: map[string][]types.RawSearchResult{}}
	store := &memSourceStore{}
	o := NewOrchestrator([]Engine{web}, searchCfg("web"), store, zap.NewNop())

	emptyPlan := types.PlanResult{Plan: &types.ResearchPlan{}}
	out, err := o.Search(context.Background(), "sess", "dark matter", emptyPlan)
	require.NoError(t, err)

	assert.Greater(t, out.QueriesRun, 0, "fallback queries must run for a non-empty topic")
	require.NotEmpty(t, web.queries)
	for _, q := range web.queries {
		assert.True(t, strings.HasPrefix(q, "dark matter "), "query %q must derive from the topic", q)
	}
}

func TestSearchQueryPoolCycles(t *testing.T) {
	web := &stubEngine{name: "web", results: map[string][]types.RawSearchResult{}}
	cfg := searchCfg("web")
	cfg.CallBudget = 5
	o := NewOrchestrator([]Engine{web}, cfg, &memSourceStore{}, zap.NewNop())

	// Pool of 2 queries, 5 allocated calls: queries repeat rather than
	// calls going unused. The second round broadens, adding more calls.
	plan := planWithQueries([]string{"aa", "bb"}, nil)
	out, err := o.Search(context.Background(), "sess", "topic", plan)
	require.NoError(t, err)
	assert.True(t, out.Broadened)

	primary := web.queries[:5]
	assert.Equal(t, []string{"aa", "bb", "aa", "bb", "aa"}, primary)
}

func TestSearchBroadeningMergesSources(t *testing.T) {
	web := &stubEngine{name: "web", results: map[string][]types.RawSearchResult{
		// Plan queries return nothing; only a broadening query hits.
		"topic pdf": {result("https://found.example/doc.pdf", "Found Doc")},
	}}
	o := NewOrchestrator([]Engine{web}, searchCfg("web"), &memSourceStore{}, zap.NewNop())

	out, err := o.Search(context.Background(), "sess", "topic", planWithQueries([]string{"nothing"}, nil))
	require.NoError(t, err)

	assert.True(t, out.Broadened)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "https://found.example/doc.pdf", out.Sources[0].URL)
}

func TestSearchSingleQueryFailureIsSkipped(t *testing.T) {
	failing := &stubEngine{name: "scholar", err: errors.New("rate limited")}
	working := &stubEngine{name: "web", results: map[string][]types.RawSearchResult{
		"q1": {result("https://ok.example", "OK")},
	}}
	o := NewOrchestrator([]Engine{working, failing}, searchCfg("web", "scholar"), &memSourceStore{}, zap.NewNop())

	out, err := o.Search(context.Background(), "sess", "topic", planWithQueries([]string{"q1"}, nil))
	require.NoError(t, err, "engine failure must not abort the search")
	require.Len(t, out.Sources, 1)
	assert.NotEmpty(t, out.EngineErrors)
}

func TestSearchAllocationFailureIsFatal(t *testing.T) {
	o := NewOrchestrator(nil, types.SearchConfig{}, &memSourceStore{}, zap.NewNop())
	_, err := o.Search(context.Background(), "sess", "topic", types.PlanResult{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEnginesEnabled))
}

func TestSearchEmptyTopicAndPlanFails(t *testing.T) {
	web := &stubEngine{name: "web"}
	o := NewOrchestrator([]Engine{web}, searchCfg("web"), &memSourceStore{}, zap.NewNop())
	_, err := o.Search(context.Background(), "sess", "", types.PlanResult{Degraded: true})
	require.Error(t, err)
}
