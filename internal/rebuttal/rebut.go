// Package rebuttal feeds a generated reply back to the LLM under an
// adversarial persona to produce a counter-argument. The stage is
// supplementary: every failure yields an empty string and the caller
// renders nothing for the section.
package rebuttal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/reply-coach/internal/llm"
	"github.com/jonathan/reply-coach/internal/prompts"
)

const (
	rebutTemperature = 0.7
	rebutMaxTokens   = 200
)

// Rebut generates a skeptical critic's counter-argument to the reply.
// The returned error is recoverable by contract.
func Rebut(ctx context.Context, client llm.Client, reply, comment string) (string, error) {
	system, err := prompts.Get("rebuttal.json", "system")
	if err != nil {
		return "", &RebutError{Message: "failed to load rebuttal prompt", Cause: err}
	}
	userTemplate, err := prompts.Get("rebuttal.json", "user")
	if err != nil {
		return "", &RebutError{Message: "failed to load rebuttal prompt", Cause: err}
	}

	user := prompts.Format(userTemplate, map[string]string{
		"Reply":   reply,
		"Comment": comment,
	})

	response, err := client.GenerateJSON(ctx, llm.Request{
		System:      system,
		User:        user,
		Tier:        llm.TierStandard,
		Temperature: rebutTemperature,
		MaxTokens:   rebutMaxTokens,
	})
	if err != nil {
		return "", &RebutError{Message: "rebuttal call failed", Cause: err}
	}

	return parseRebuttal(response)
}

func parseRebuttal(response string) (string, error) {
	raw, err := llm.ExtractJSONObject(response)
	if err != nil {
		return "", &RebutError{Message: "no JSON object in rebuttal response", Cause: err}
	}

	var wire struct {
		Rebuttal string `json:"rebuttal"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return "", &RebutError{Message: "rebuttal JSON did not match the contract", Cause: err}
	}

	rebuttal := strings.TrimSpace(wire.Rebuttal)
	if rebuttal == "" {
		return "", &RebutError{Message: "rebuttal field is missing or empty"}
	}

	return rebuttal, nil
}
