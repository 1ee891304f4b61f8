// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		return text
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			// If first line looks like a language identifier (no spaces, short), skip it
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		return text
	}

	return text
}

// ExtractJSONObject locates the first top-level brace-delimited JSON object
// in free-form model text and returns it. The model is not contractually
// guaranteed to emit bare JSON, so the object may be surrounded by prose or
// fence markers. Returns an error when no well-formed object is found.
func ExtractJSONObject(text string) (string, error) {
	return extractDelimited(CleanJSONBlock(text), '{', '}')
}

// ExtractJSONArray locates the first top-level bracketed JSON array in
// free-form model text. Same tolerance rules as ExtractJSONObject.
func ExtractJSONArray(text string) (string, error) {
	return extractDelimited(CleanJSONBlock(text), '[', ']')
}

// extractDelimited scans for the first balanced open..close span, counting
// depth and skipping string literals and escapes, then verifies the span
// decodes as JSON.
func extractDelimited(text string, open, closing byte) (string, error) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", fmt.Errorf("no %q found in response", string(open))
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
			// characters inside strings do not affect depth
		case ch == open:
			depth++
		case ch == closing:
			depth--
			if depth == 0 {
				candidate := text[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return "", fmt.Errorf("extracted span is not valid JSON")
				}
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("unbalanced %q in response", string(open))
}
