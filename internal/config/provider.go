// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves prompt overrides and the enabled citation
// style. Stages ask the Provider for a configured prompt and fall back
// to their built-in defaults when none exists.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// PromptConfig is one configured prompt with its generation parameters.
type PromptConfig struct {
	Text        string  `yaml:"text"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Provider resolves prompts by usage context and exposes the enabled
// citation style.
type Provider struct {
	prompts map[string]PromptConfig
	style   types.Style
}

// NewProvider loads the prompts file named in cfg, when present. A
// missing file is not an error; an unparsable one is. The citation
// style comes from cfg.Citation.PrimaryStyle, defaulting to Harvard.
func NewProvider(cfg types.PipelineConfig) (*Provider, error) {
	p := &Provider{
		prompts: map[string]PromptConfig{},
		style:   types.ParseStyle(cfg.Citation.PrimaryStyle),
	}

	if cfg.PromptsFile == "" {
		return p, nil
	}

	data, err := os.ReadFile(cfg.PromptsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("reading prompts file %s: %w", cfg.PromptsFile, err)
	}

	if err := yaml.Unmarshal(data, &p.prompts); err != nil {
		return nil, fmt.Errorf("parsing prompts file %s: %w", cfg.PromptsFile, err)
	}

	return p, nil
}

// Prompt returns the configured prompt for a usage context. The lookup
// tries "usage/sub" first, then the bare usage key. The second return
// value reports whether a prompt was found.
func (p *Provider) Prompt(usage, sub string) (PromptConfig, bool) {
	if sub != "" {
		if pc, ok := p.prompts[usage+"/"+sub]; ok {
			return pc, true
		}
	}
	pc, ok := p.prompts[usage]
	return pc, ok
}

// EnabledStyle returns the primary citation style for this deployment.
func (p *Provider) EnabledStyle() types.Style {
	return p.style
}
