// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "research-pipeline/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ProviderConfig describes one text-generation provider. Providers are
// OpenAI-compatible chat completion endpoints.
type ProviderConfig struct {
	// Name identifies the provider in logs and error reports.
	Name string `json:"name" yaml:"name"`

	// BaseURL is the API base URL (e.g. "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey is the authentication key. Usually loaded from .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model identifier to request.
	Model string `json:"model" yaml:"model"`
}

// LLMConfig holds settings for the LLM gateway. The primary provider is
// tried first on every call; the fallback gets one attempt when the
// primary fails.
type LLMConfig struct {
	HTTPConfig `yaml:",inline"`

	Primary  ProviderConfig `json:"primary" yaml:"primary"`
	Fallback ProviderConfig `json:"fallback" yaml:"fallback"`
}

// EngineConfig describes one search engine backend.
type EngineConfig struct {
	// Enabled controls whether the engine participates in allocation.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Weight is the engine's share of the call budget (default 1).
	Weight int `json:"weight" yaml:"weight"`

	// APIKey authenticates against the engine's API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// SearchConfig holds settings for the search orchestration stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// CallBudget is the total number of engine calls per research run
	// (default 10), split across enabled engines by weight.
	CallBudget int `json:"call_budget" yaml:"call_budget"`

	// ResultsPerQuery is the number of organic results requested per
	// engine call (default 10).
	ResultsPerQuery int `json:"results_per_query" yaml:"results_per_query"`

	// Engines maps engine name ("web", "scholar") to its settings.
	Engines map[string]EngineConfig `json:"engines" yaml:"engines"`
}

// ContentConfig holds settings for the content extraction stage.
type ContentConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxFetch bounds how many sources get full-text extraction (default 5).
	MaxFetch int `json:"max_fetch" yaml:"max_fetch"`

	// MaxContentBytes truncates extracted text (default 200 KiB).
	MaxContentBytes int `json:"max_content_bytes" yaml:"max_content_bytes"`

	// ChunkSize is the chunk length in runes (default 1500).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks in runes
	// (default 200).
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
}

// CitationConfig holds settings for the citation formatting stage.
type CitationConfig struct {
	// PrimaryStyle is the style sent through the model path. Unknown or
	// empty values fall back to Harvard.
	PrimaryStyle string `json:"primary_style" yaml:"primary_style"`
}

// StoreConfig holds settings for the session store.
type StoreConfig struct {
	// Path is the SQLite database file (default "research-sessions.db").
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	LLM      LLMConfig      `json:"llm" yaml:"llm"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Content  ContentConfig  `json:"content" yaml:"content"`
	Citation CitationConfig `json:"citation" yaml:"citation"`
	Store    StoreConfig    `json:"store" yaml:"store"`

	// PromptsFile is an optional YAML file of prompt overrides.
	PromptsFile string `json:"prompts_file,omitempty" yaml:"prompts_file,omitempty"`
}
