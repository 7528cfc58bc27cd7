// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan turns a topic and optional questions into a structured
// research plan. Planning never fails the pipeline: undecodable model
// output yields a degraded result carrying the raw response, and
// downstream stages fall back to topic-derived queries.
package plan

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/research-pipeline/internal/config"
	"github.com/pdiddy/research-pipeline/internal/jsonx"
	"github.com/pdiddy/research-pipeline/internal/llm"
	"github.com/pdiddy/research-pipeline/pkg/types"
)

// defaultPrompt is used when no planning prompt is configured.
const defaultPrompt = `You are a research planning system. Build a research plan for the topic below.

Respond with a single JSON object and no other text. The object must have:
- "research_areas": an array of objects, each with "area", "description", "search_queries" (array of strings), "source_types" (array of strings), "key_concepts" (array of strings), and "perspectives" (array of strings)
- "section_specific_research": an object mapping section names to objects with "focus", "search_queries" (array of strings), and "key_concepts" (array of strings)

Use section names "introduction", "background", "analysis", and "conclusion".

Topic: {topic}
{questions}`

// Planner is the research planning stage.
type Planner struct {
	gen     llm.Generator
	prompts *config.Provider
	logger  *zap.Logger
}

// NewPlanner builds a planner over a text generator.
func NewPlanner(gen llm.Generator, prompts *config.Provider, logger *zap.Logger) *Planner {
	return &Planner{gen: gen, prompts: prompts, logger: logger}
}

// Plan requests a structured research plan for the topic. The model
// output is parsed leniently (outermost JSON object); decode failure
// returns a degraded result, never an error.
func (p *Planner) Plan(ctx context.Context, topic string, questions []string) types.PlanResult {
	promptText := defaultPrompt
	temperature := float32(0.3)
	maxTokens := 2000
	if pc, ok := p.prompts.Prompt("planning", ""); ok {
		promptText = pc.Text
		temperature = pc.Temperature
		if pc.MaxTokens > 0 {
			maxTokens = pc.MaxTokens
		}
	}

	prompt := buildPrompt(promptText, topic, questions)

	text, err := p.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		p.logger.Warn("planning call failed, continuing degraded",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return types.PlanResult{Degraded: true, Err: err.Error()}
	}

	var researchPlan types.ResearchPlan
	if err := jsonx.ExtractObject(text, &researchPlan); err != nil {
		p.logger.Warn("plan output did not decode, continuing degraded",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return types.PlanResult{Degraded: true, Err: err.Error(), RawResponse: text}
	}

	return types.PlanResult{Plan: &researchPlan}
}

// buildPrompt substitutes topic and questions into the prompt template.
func buildPrompt(template, topic string, questions []string) string {
	questionsBlock := ""
	if len(questions) > 0 {
		questionsBlock = "Guiding questions:\n- " + strings.Join(questions, "\n- ")
	}

	prompt := template
	if strings.Contains(prompt, "{topic}") {
		prompt = strings.ReplaceAll(prompt, "{topic}", topic)
	} else {
		prompt += "\n\nTopic: " + topic
	}
	if strings.Contains(prompt, "{questions}") {
		prompt = strings.ReplaceAll(prompt, "{questions}", questionsBlock)
	} else if questionsBlock != "" {
		prompt += "\n" + questionsBlock
	}
	return strings.TrimSpace(prompt)
}
