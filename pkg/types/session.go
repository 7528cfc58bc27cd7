// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the research pipeline.
// See docs/ARCHITECTURE.md § Data Structures.
package types

import "time"

// ResearchSession is the root record for one research request. It is
// created once per request and never mutated; every other persisted
// entity is keyed by its ID.
type ResearchSession struct {
	// ID is the session identifier (UUID assigned by the store).
	ID string `json:"id" yaml:"id"`

	// Topic is the research topic as submitted.
	Topic string `json:"topic" yaml:"topic"`

	// Questions are optional guiding questions supplied with the topic.
	Questions []string `json:"questions,omitempty" yaml:"questions,omitempty"`

	// CreatedAt is the session creation time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ModerationResult is the accept/reject verdict for a topic. Verdicts
// are cached by exact topic string and never recomputed once stored.
type ModerationResult struct {
	Topic         string `json:"topic" yaml:"topic"`
	IsAppropriate bool   `json:"is_appropriate" yaml:"is_appropriate"`
	Reason        string `json:"reason" yaml:"reason"`
}
