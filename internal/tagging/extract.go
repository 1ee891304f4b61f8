// Package tagging extracts emotional/contextual framing tags from user text.
package tagging

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/reply-coach/internal/llm"
	"github.com/jonathan/reply-coach/internal/prompts"
)

const (
	// placeholder substitutes empty fields so the instruction template
	// never contains a blank slot
	placeholder = "(none)"
	// maxTags caps the tag list the model may return
	maxTags = 5
	// low temperature favors reproducible tag sets
	extractTemperature = 0.1
	extractMaxTokens   = 100
)

// ExtractTags issues one generation call and parses a short list of
// lowercase keyword tags describing the emotional/contextual framing of the
// input. Failures are recoverable by contract: the caller must treat an
// error as "no tags" and keep the pipeline running.
func ExtractTags(ctx context.Context, client llm.Client, comment, draft string) ([]string, error) {
	template, err := prompts.Get("tags.json", "extract")
	if err != nil {
		return nil, &ExtractError{Message: "failed to load tag prompt", Cause: err}
	}

	prompt := prompts.Format(template, map[string]string{
		"Comment": orPlaceholder(comment),
		"Draft":   orPlaceholder(draft),
	})

	response, err := client.GenerateJSON(ctx, llm.Request{
		User:        prompt,
		Tier:        llm.TierLite,
		Temperature: extractTemperature,
		MaxTokens:   extractMaxTokens,
	})
	if err != nil {
		return nil, &ExtractError{Message: "tag extraction call failed", Cause: err}
	}

	return parseTags(response)
}

// parseTags locates the first bracketed JSON array in the response,
// tolerating surrounding prose and fence markers, and normalizes the tags.
func parseTags(response string) ([]string, error) {
	arrayText, err := llm.ExtractJSONArray(response)
	if err != nil {
		return nil, &ExtractError{Message: "no tag array in response", Cause: err}
	}

	var raw []string
	if err := json.Unmarshal([]byte(arrayText), &raw); err != nil {
		return nil, &ExtractError{Message: "tag array is not a string list", Cause: err}
	}

	var tags []string
	seen := make(map[string]bool)
	for _, t := range raw {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}

	return tags, nil
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
