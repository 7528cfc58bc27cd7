// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// SourceStore persists extracted sources, deduplicated by URL within a
// session.
type SourceStore interface {
	StoreSources(ctx context.Context, sessionID string, sources []types.AcademicSource) ([]string, error)
}

// Output holds the search stage result.
type Output struct {
	Sources      []types.AcademicSource
	QueriesRun   int
	Broadened    bool
	EngineErrors []string
}

// Orchestrator executes plan queries across enabled engines under a
// call budget.
type Orchestrator struct {
	engines []Engine
	cfg     types.SearchConfig
	store   SourceStore
	logger  *zap.Logger
}

// NewOrchestrator builds the search stage over the given engines.
func NewOrchestrator(engines []Engine, cfg types.SearchConfig, store SourceStore, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{engines: engines, cfg: cfg, store: store, logger: logger}
}

// Search allocates the call budget, runs plan queries (or topic-derived
// fallbacks) across all engines, extracts academic sources, broadens
// once when the primary round yields nothing, and persists the result.
// The only fatal condition is budget allocation failure; individual
// query failures are logged and skipped.
func (o *Orchestrator) Search(ctx context.Context, sessionID, topic string, plan types.PlanResult) (*Output, error) {
	budget, err := AllocateBudget(o.cfg)
	if err != nil {
		return nil, fmt.Errorf("allocating search budget: %w", err)
	}

	pool := PoolQueries(plan)
	if len(pool) == 0 {
		pool = FallbackQueries(topic)
		o.logger.Info("plan contributed no queries, using topic-derived fallbacks",
			zap.String("session_id", sessionID),
			zap.Int("queries", len(pool)),
		)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no queries available: topic is empty")
	}

	out := &Output{}
	resultsByEngine := o.runRound(ctx, pool, budget, out)

	sources := ExtractSources(resultsByEngine)

	if len(sources) == 0 {
		// Broadening round: more generic topic-derived queries, results
		// merged into the primary (empty) set.
		out.Broadened = true
		o.logger.Info("primary search yielded no sources, broadening",
			zap.String("session_id", sessionID),
		)
		broadBudget := make(map[string]int, len(budget))
		for name := range budget {
			broadBudget[name] = len(BroadeningQueries(topic))
		}
		broadResults := o.runRound(ctx, BroadeningQueries(topic), broadBudget, out)
		for engine, results := range broadResults {
			resultsByEngine[engine] = append(resultsByEngine[engine], results...)
		}
		sources = ExtractSources(resultsByEngine)
	}

	if len(sources) > 0 {
		ids, err := o.store.StoreSources(ctx, sessionID, sources)
		if err != nil {
			return nil, fmt.Errorf("persisting sources: %w", err)
		}
		for i := range sources {
			sources[i].ID = ids[i]
		}
	}

	out.Sources = sources
	return out, nil
}

// runRound executes one allocation round: every engine runs its
// allocated number of queries taken from the front of the pool,
// cycling when the pool is smaller than the allocation. Engines run
// concurrently; each engine's results are deduplicated by link.
func (o *Orchestrator) runRound(ctx context.Context, pool []string, budget map[string]int, out *Output) map[string][]types.RawSearchResult {
	type engineResults struct {
		name    string
		results []types.RawSearchResult
		errs    []string
		queries int
	}

	g, ctx := errgroup.WithContext(ctx)
	collected := make([]engineResults, len(o.engines))

	for i, engine := range o.engines {
		i, engine := i, engine
		calls := budget[engine.Name()]
		if calls == 0 {
			continue
		}

		g.Go(func() error {
			er := engineResults{name: engine.Name()}
			seen := make(map[string]bool)

			for call := 0; call < calls; call++ {
				query := pool[call%len(pool)]
				er.queries++

				results, err := engine.Search(ctx, query, o.cfg.ResultsPerQuery)
				if err != nil {
					o.logger.Warn("search query failed, skipping",
						zap.String("engine", engine.Name()),
						zap.String("query", query),
						zap.Error(err),
					)
					er.errs = append(er.errs, fmt.Sprintf("%s: %v", engine.Name(), err))
					continue
				}

				for _, r := range results {
					if r.Link == "" || seen[r.Link] {
						continue
					}
					seen[r.Link] = true
					er.results = append(er.results, r)
				}
			}

			collected[i] = er
			return nil
		})
	}

	g.Wait()

	resultsByEngine := make(map[string][]types.RawSearchResult)
	for _, er := range collected {
		if er.name == "" {
			continue
		}
		out.QueriesRun += er.queries

		errs := er.errs
		sort.Strings(errs)
		out.EngineErrors = append(out.EngineErrors, errs...)

		resultsByEngine[er.name] = append(resultsByEngine[er.name], er.results...)
	}
	return resultsByEngine
}
