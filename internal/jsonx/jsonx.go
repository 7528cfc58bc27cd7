// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonx provides lenient JSON extraction for model output.
// Generative models are not trusted to return only JSON: responses often
// wrap the object in prose or markdown fences. ExtractObject recovers the
// outermost {...} substring and decodes it.
package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractObject locates the outermost JSON object in text (from the
// first '{' to the last '}') and unmarshals it into v. It fails when no
// braces are present or the substring does not decode.
func ExtractObject(text string, v any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object found in text")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("decoding extracted object: %w", err)
	}
	return nil
}
