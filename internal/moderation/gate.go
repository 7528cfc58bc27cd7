// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package moderation decides whether a topic is suitable for automated
// research. Verdicts are cached in two tiers (process memory, then the
// session store) and never recomputed once cached. A provider failure
// rejects conservatively; it never silently approves.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/llm"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// defaultPrompt is used when no moderation prompt is configured.
const defaultPrompt = `You are a content moderator for an automated research system. Decide whether the following topic is appropriate for academic research. A topic is inappropriate if it seeks to cause harm, requests illegal content, or targets individuals.

Respond with exactly "APPROPRIATE" if the topic is acceptable, or "INAPPROPRIATE: <reason>" if it is not. Do not include any other text.

Topic: {topic}`

// Cache is the in-process verdict cache. Callers supply an
// implementation; tests can use NopCache.
type Cache interface {
	Get(topic string) (types.ModerationResult, bool)
	Put(result types.ModerationResult)
}

// MemoryCache is a mutex-guarded map keyed by exact topic string.
type MemoryCache struct {
	mu       sync.Mutex
	verdicts map[string]types.ModerationResult
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{verdicts: make(map[string]types.ModerationResult)}
}

// Get returns the cached verdict for a topic.
func (c *MemoryCache) Get(topic string) (types.ModerationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.verdicts[topic]
	return r, ok
}

// Put caches a verdict.
func (c *MemoryCache) Put(result types.ModerationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts[result.Topic] = result
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) Get(string) (types.ModerationResult, bool) { return types.ModerationResult{}, false }
func (NopCache) Put(types.ModerationResult)                {}

// VerdictStore is the persistent verdict tier, usually the session store.
type VerdictStore interface {
	GetModerationResult(ctx context.Context, topic string) (*types.ModerationResult, error)
	StoreModerationResult(ctx context.Context, topic string, isAppropriate bool, reason string) error
}

// Gate is the moderation stage.
type Gate struct {
	cache   Cache
	store   VerdictStore
	gen     llm.Generator
	prompts *config.Provider
	logger  *zap.Logger
}

// NewGate builds a moderation gate over an explicit cache, a persistent
// store, and a text generator.
func NewGate(cache Cache, store VerdictStore, gen llm.Generator, prompts *config.Provider, logger *zap.Logger) *Gate {
	return &Gate{cache: cache, store: store, gen: gen, prompts: prompts, logger: logger}
}

// Moderate returns the accept/reject verdict for a topic. Lookup order
// is cache, store, then the model. Successful verdicts are written to
// both tiers before returning. A provider failure returns a rejection
// with the error detail and is not cached.
func (g *Gate) Moderate(ctx context.Context, topic string) (bool, string) {
	if r, ok := g.cache.Get(topic); ok {
		return r.IsAppropriate, r.Reason
	}

	if stored, err := g.store.GetModerationResult(ctx, topic); err != nil {
		g.logger.Warn("moderation store lookup failed", zap.Error(err))
	} else if stored != nil {
		g.cache.Put(*stored)
		return stored.IsAppropriate, stored.Reason
	}

	promptText := defaultPrompt
	temperature := float32(0.0)
	maxTokens := 150
	if pc, ok := g.prompts.Prompt("moderation", ""); ok {
		promptText = pc.Text
		temperature = pc.Temperature
		if pc.MaxTokens > 0 {
			maxTokens = pc.MaxTokens
		}
	}

	prompt := buildPrompt(promptText, topic)
	text, err := g.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		g.logger.Warn("moderation call failed, rejecting conservatively",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return false, fmt.Sprintf("Error during moderation: %v", err)
	}

	isAppropriate, reason := parseVerdict(text)

	result := types.ModerationResult{Topic: topic, IsAppropriate: isAppropriate, Reason: reason}
	g.cache.Put(result)
	if err := g.store.StoreModerationResult(ctx, topic, isAppropriate, reason); err != nil {
		g.logger.Warn("persisting moderation verdict failed", zap.Error(err))
	}

	return isAppropriate, reason
}

// buildPrompt substitutes the topic into the prompt template. Prompts
// without a {topic} placeholder get the topic appended.
func buildPrompt(template, topic string) string {
	if strings.Contains(template, "{topic}") {
		return strings.ReplaceAll(template, "{topic}", topic)
	}
	return template + "\n\nTopic: " + topic
}

// parseVerdict interprets the model output. The contract is exactly
// "APPROPRIATE" or "INAPPROPRIATE: <reason>"; anything else is treated
// as a rejection with the raw text as reason.
func parseVerdict(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "APPROPRIATE" {
		return true, ""
	}
	if rest, ok := strings.CutPrefix(trimmed, "INAPPROPRIATE"); ok {
		reason := strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		return false, reason
	}
	return false, trimmed
}
