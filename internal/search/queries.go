// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"sort"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// fallbackSuffixes bias topic-derived queries toward retrievable
// academic documents. Used when the plan contributes no queries.
var fallbackSuffixes = []string{
	"filetype:pdf",
	"research paper",
	"literature review",
	"meta-analysis",
	"case study",
	"survey",
	"systematic review",
	"journal article",
	"findings",
	"state of the art",
}

// broadeningSuffixes are the more generic terms for the second-round
// search that runs when the primary round yields zero sources.
var broadeningSuffixes = []string{"pdf", "research", "study", "analysis", "overview"}

const maxFallbackQueries = 10

// PoolQueries collects every search query from the plan's research
// areas and section directives, deduplicates by exact string, and
// sorts shortest-first. Short queries tend to be the broader, core
// ones; ties break lexicographically so the order is deterministic.
func PoolQueries(plan types.PlanResult) []string {
	seen := make(map[string]bool)
	var pool []string
	for _, q := range plan.Queries() {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		pool = append(pool, q)
	}

	sort.Slice(pool, func(i, j int) bool {
		if len(pool[i]) != len(pool[j]) {
			return len(pool[i]) < len(pool[j])
		}
		return pool[i] < pool[j]
	})
	return pool
}

// FallbackQueries derives up to ten queries from the topic alone. The
// orchestrator never performs zero searches for a non-empty topic.
func FallbackQueries(topic string) []string {
	if topic == "" {
		return nil
	}
	queries := make([]string, 0, maxFallbackQueries)
	for _, suffix := range fallbackSuffixes {
		if len(queries) == maxFallbackQueries {
			break
		}
		queries = append(queries, topic+" "+suffix)
	}
	return queries
}

// BroadeningQueries derives the generic second-round queries.
func BroadeningQueries(topic string) []string {
	queries := make([]string, 0, len(broadeningSuffixes))
	for _, suffix := range broadeningSuffixes {
		queries = append(queries, topic+" "+suffix)
	}
	return queries
}
