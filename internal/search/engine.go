// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search allocates a call budget across web search engines,
// executes plan queries, and normalizes the results into deduplicated
// academic sources. See docs/ARCHITECTURE.md § Search.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/research-pipeline/internal/httputil"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// Engine queries a single named search backend. Each engine implements
// this interface per the Strategy pattern.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, numResults int) ([]types.RawSearchResult, error)
}

// API endpoints. Package-level vars for test substitution.
var (
	webAPIBase     = "https://serpapi.com/search"
	scholarAPIBase = "https://serpapi.com/search"
)

// serpResponse is the relevant slice of a SerpAPI-shaped response.
type serpResponse struct {
	OrganicResults []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// WebEngine queries the general web search backend.
type WebEngine struct {
	Client *http.Client
	APIKey string
	Config types.HTTPConfig
}

// Name returns the engine identifier.
func (e *WebEngine) Name() string { return "web" }

// Search runs one query against the web backend.
func (e *WebEngine) Search(ctx context.Context, query string, numResults int) ([]types.RawSearchResult, error) {
	return serpSearch(ctx, e.Client, webAPIBase, "google", e.APIKey, e.Config, e.Name(), query, numResults)
}

// ScholarEngine queries the scholarly search backend.
type ScholarEngine struct {
	Client *http.Client
	APIKey string
	Config types.HTTPConfig
}

// Name returns the engine identifier.
func (e *ScholarEngine) Name() string { return "scholar" }

// Search runs one query against the scholarly backend.
func (e *ScholarEngine) Search(ctx context.Context, query string, numResults int) ([]types.RawSearchResult, error) {
	return serpSearch(ctx, e.Client, scholarAPIBase, "google_scholar", e.APIKey, e.Config, e.Name(), query, numResults)
}

// serpSearch issues one SerpAPI-shaped request and decodes the organic
// results.
func serpSearch(ctx context.Context, client *http.Client, base, backend, apiKey string, cfg types.HTTPConfig, engineName, query string, numResults int) ([]types.RawSearchResult, error) {
	if numResults <= 0 {
		numResults = 10
	}

	params := url.Values{
		"engine": {backend},
		"q":      {query},
		"num":    {fmt.Sprintf("%d", numResults)},
	}
	if apiKey != "" {
		params.Set("api_key", apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%s search request: %w", engineName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s search returned HTTP %d", engineName, resp.StatusCode)
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing %s search response: %w", engineName, err)
	}

	results := make([]types.RawSearchResult, 0, len(sr.OrganicResults))
	for _, r := range sr.OrganicResults {
		results = append(results, types.RawSearchResult{
			Link:    r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
			Engine:  engineName,
		})
	}
	return results, nil
}

// BuildEngines constructs the enabled engines from configuration, in
// deterministic name order.
func BuildEngines(cfg types.SearchConfig) []Engine {
	client := &http.Client{Timeout: cfg.Timeout}

	var engines []Engine
	if ec, ok := cfg.Engines["scholar"]; ok && ec.Enabled {
		engines = append(engines, &ScholarEngine{Client: client, APIKey: ec.APIKey, Config: cfg.HTTPConfig})
	}
	if ec, ok := cfg.Engines["web"]; ok && ec.Enabled {
		engines = append(engines, &WebEngine{Client: client, APIKey: ec.APIKey, Config: cfg.HTTPConfig})
	}
	return engines
}
