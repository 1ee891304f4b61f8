package replying

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonathan/reply-coach/internal/llm"
	"github.com/jonathan/reply-coach/internal/prompts"
	"github.com/jonathan/reply-coach/internal/strategy"
)

const (
	replyTemperature = 0.7
	replyMaxTokens   = 400

	// missingExplanation substitutes an absent explanation on a completed
	// result so the field is never blank for display
	missingExplanation = "No explanation was provided for this reply."

	// lowRatingThreshold selects the stronger revision instruction
	lowRatingThreshold = 2
)

// Generate assembles the persona+format system prompt (optionally
// conditioned on prior feedback), sends the input as a structured JSON user
// message, and decodes the two-shape contract. Call and parse failures are
// terminal for the run.
func Generate(ctx context.Context, client llm.Client, input Input, matched []strategy.Strategy, prior *Feedback) (*Result, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	system, err := buildSystemPrompt(matched, prior)
	if err != nil {
		return nil, err
	}

	// The payload travels as JSON, never as free prose: it keeps "what to
	// transform" separate from "how to transform it" and blunts inputs
	// that carry their own formatting instructions.
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, &APICallError{Message: "failed to encode input payload", Cause: err}
	}

	response, err := client.GenerateJSON(ctx, llm.Request{
		System:      system,
		User:        string(payload),
		Tier:        llm.TierStandard,
		Temperature: replyTemperature,
		MaxTokens:   replyMaxTokens,
	})
	if err != nil {
		return nil, &APICallError{Message: "reply generation call failed", Cause: err}
	}

	return parseResult(response)
}

// buildSystemPrompt renders the system prompt: an optional revision
// preamble, the persona block, the matched strategy bullets (or the
// fallback sentence), and the response-format contract.
func buildSystemPrompt(matched []strategy.Strategy, prior *Feedback) (string, error) {
	var blocks []string

	if prior != nil {
		preamble, err := buildRevisionPreamble(*prior)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, preamble)
	}

	persona, err := prompts.Get("reply.json", "persona")
	if err != nil {
		return "", &APICallError{Message: "failed to load persona prompt", Cause: err}
	}
	blocks = append(blocks, persona)

	if len(matched) > 0 {
		template, err := prompts.Get("reply.json", "strategies")
		if err != nil {
			return "", &APICallError{Message: "failed to load strategies prompt", Cause: err}
		}
		blocks = append(blocks, prompts.Format(template, map[string]string{
			"FormattedStrategies": strategy.FormatBullets(matched),
		}))
	} else {
		fallback, err := prompts.Get("reply.json", "no_strategies")
		if err != nil {
			return "", &APICallError{Message: "failed to load fallback prompt", Cause: err}
		}
		blocks = append(blocks, fallback)
	}

	format, err := prompts.Get("reply.json", "format")
	if err != nil {
		return "", &APICallError{Message: "failed to load format prompt", Cause: err}
	}
	blocks = append(blocks, format)

	return strings.Join(blocks, "\n\n"), nil
}

// buildRevisionPreamble renders the feedback-conditioned instruction.
// Instruction strength scales as the rating decreases.
func buildRevisionPreamble(fb Feedback) (string, error) {
	key := "revision_mild"
	if fb.Rating > 0 && fb.Rating <= lowRatingThreshold {
		key = "revision_strong"
	}

	template, err := prompts.Get("reply.json", key)
	if err != nil {
		return "", &APICallError{Message: "failed to load revision prompt", Cause: err}
	}

	rating := "unrated"
	if fb.Rating > 0 {
		rating = strconv.Itoa(fb.Rating)
	}

	return prompts.Format(template, map[string]string{
		"Rating":   rating,
		"Feedback": fb.Text,
	}), nil
}

// wireResult mirrors the JSON contract on the wire.
type wireResult struct {
	FollowUpQuestion   string `json:"follow_up_question"`
	NeedsClarification bool   `json:"needs_clarification"`
	Message            string `json:"message"`
	Explanation        string `json:"explanation"`
	InputType          string `json:"input_type"`
}

// parseResult extracts the first brace-delimited JSON object from the
// response and normalizes it. Any decode failure is terminal.
func parseResult(response string) (*Result, error) {
	raw, err := llm.ExtractJSONObject(response)
	if err != nil {
		return nil, &ParseError{Message: "response was not valid JSON", Cause: err}
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, &ParseError{Message: "response JSON did not match the contract", Cause: err}
	}

	result := &Result{
		NeedsClarification: wire.NeedsClarification,
		Raw:                raw,
	}

	if wire.NeedsClarification {
		result.FollowUpQuestion = strings.TrimSpace(wire.FollowUpQuestion)
		if result.FollowUpQuestion == "" {
			return nil, &ParseError{Message: "clarification response has no follow_up_question"}
		}
		return result, nil
	}

	result.Message = strings.TrimSpace(wire.Message)
	if result.Message == "" {
		return nil, &ParseError{Message: "completed response has no message"}
	}

	result.Explanation = strings.TrimSpace(wire.Explanation)
	if result.Explanation == "" {
		result.Explanation = missingExplanation
	}

	result.InputType = normalizeInputType(wire.InputType)

	return result, nil
}

func normalizeInputType(raw string) InputType {
	switch InputType(strings.ToLower(strings.TrimSpace(raw))) {
	case InputComment:
		return InputComment
	case InputDraft:
		return InputDraft
	case InputBoth:
		return InputBoth
	default:
		return InputUnknown
	}
}
