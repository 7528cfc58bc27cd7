// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"sort"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// ErrNoEnginesEnabled signals that budget allocation found no enabled
// engines. It is the only fatal error the search stage produces.
var ErrNoEnginesEnabled = errors.New("no search engines enabled")

const defaultCallBudget = 10

// AllocateBudget splits the per-run call budget across enabled engines.
// Each engine's share is proportional to its configured weight, every
// enabled engine gets at least one call, and remainder calls go
// round-robin in engine name order so the split is deterministic.
func AllocateBudget(cfg types.SearchConfig) (map[string]int, error) {
	type weighted struct {
		name   string
		weight int
	}

	var enabled []weighted
	for name, ec := range cfg.Engines {
		if !ec.Enabled {
			continue
		}
		w := ec.Weight
		if w <= 0 {
			w = 1
		}
		enabled = append(enabled, weighted{name: name, weight: w})
	}
	if len(enabled) == 0 {
		return nil, ErrNoEnginesEnabled
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].name < enabled[j].name })

	budget := cfg.CallBudget
	if budget <= 0 {
		budget = defaultCallBudget
	}
	if budget < len(enabled) {
		budget = len(enabled)
	}

	totalWeight := 0
	for _, e := range enabled {
		totalWeight += e.weight
	}

	allocation := make(map[string]int, len(enabled))
	assigned := 0
	for _, e := range enabled {
		calls := budget * e.weight / totalWeight
		if calls < 1 {
			calls = 1
		}
		allocation[e.name] = calls
		assigned += calls
	}

	// Distribute any remainder round-robin in name order.
	for i := 0; assigned < budget; i++ {
		allocation[enabled[i%len(enabled)].name]++
		assigned++
	}

	return allocation, nil
}
