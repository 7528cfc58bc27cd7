// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides single-call text generation with ordered provider
// failover. Every stage that needs model output goes through the Gateway.
// See docs/ARCHITECTURE.md § LLM Gateway.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/pkg/types"
)

// ErrProvidersExhausted signals that every configured provider failed
// for one generation call. It is the only hard failure the gateway
// produces.
var ErrProvidersExhausted = errors.New("all text generation providers failed")

// Attempt records one provider's failure during a generation call.
type Attempt struct {
	Provider string
	Err      error
}

// ProviderError aggregates the per-provider failures behind an
// exhausted call. It unwraps to ErrProvidersExhausted.
type ProviderError struct {
	Attempts []Attempt
}

func (e *ProviderError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Provider, a.Err)
	}
	return "all text generation providers failed: " + strings.Join(parts, "; ")
}

func (e *ProviderError) Unwrap() error { return ErrProvidersExhausted }

// Request holds the parameters for one generation call.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// Generator is the text generation contract consumed by pipeline stages.
// Tests substitute a stub; production code uses *Gateway.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// provider is one configured chat completion endpoint.
type provider struct {
	name   string
	model  string
	client *openai.Client
}

// Gateway tries an ordered list of OpenAI-compatible providers. Each
// provider gets exactly one attempt per call; there is no retry within
// a provider.
type Gateway struct {
	providers []provider
	logger    *zap.Logger
}

// NewGateway builds a gateway from the primary and optional fallback
// provider configuration. At least the primary must carry a model.
func NewGateway(cfg types.LLMConfig, logger *zap.Logger) (*Gateway, error) {
	if cfg.Primary.Model == "" {
		return nil, fmt.Errorf("no primary text generation provider configured")
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	providers := []provider{newProvider(cfg.Primary, httpClient)}
	if cfg.Fallback.Model != "" {
		providers = append(providers, newProvider(cfg.Fallback, httpClient))
	}

	return &Gateway{providers: providers, logger: logger}, nil
}

func newProvider(cfg types.ProviderConfig, httpClient *http.Client) provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient

	name := cfg.Name
	if name == "" {
		name = cfg.Model
	}

	return provider{
		name:   name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// Generate runs one chat completion, trying providers in order. A
// transport error, non-2xx status, or empty response advances to the
// next provider; when every provider fails the returned error is a
// *ProviderError wrapping ErrProvidersExhausted.
func (g *Gateway) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	var attempts []Attempt
	for _, p := range g.providers {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       p.model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			g.logger.Warn("provider call failed",
				zap.String("provider", p.name),
				zap.Error(err),
			)
			attempts = append(attempts, Attempt{Provider: p.name, Err: err})
			continue
		}

		text := ""
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Message.Content
		}
		if strings.TrimSpace(text) == "" {
			err := fmt.Errorf("empty completion")
			g.logger.Warn("provider returned empty completion",
				zap.String("provider", p.name),
			)
			attempts = append(attempts, Attempt{Provider: p.name, Err: err})
			continue
		}

		return text, nil
	}

	return "", &ProviderError{Attempts: attempts}
}
