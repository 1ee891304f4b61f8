// Package evaluation scores a reply/rebuttal pair for persuasive confidence
// and proposes an improved "ultimate" reply. The stage never fails the
// pipeline: on any error the result carries a failure marker and the raw
// model output for diagnostics.
package evaluation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonathan/reply-coach/internal/llm"
	"github.com/jonathan/reply-coach/internal/prompts"
)

const (
	evalTemperature = 0.3
	evalMaxTokens   = 600

	// FailedJustification marks an evaluation that could not be produced
	FailedJustification = "evaluation failed"
)

// Result holds the confidence evaluation. ConfidenceScore is nil when the
// model omitted it or the stage failed. RawOutput is always retained for
// diagnostic display.
type Result struct {
	ConfidenceScore       *float64 `json:"confidence_score,omitempty"`
	Justification         string   `json:"justification"`
	SuggestedImprovements string   `json:"suggested_improvements,omitempty"`
	UltimateReply         string   `json:"ultimate_reply,omitempty"`
	RawOutput             string   `json:"-"`
}

// Failed reports whether this evaluation carries the failure marker.
func (r *Result) Failed() bool {
	return r.Justification == FailedJustification
}

// Evaluate scores the reply against the rebuttal it drew. It never returns
// an error past the pipeline boundary: failures produce a Result with the
// failure marker, and the secondary error return exists only for logging.
func Evaluate(ctx context.Context, client llm.Client, reply, rebuttal, comment, strategyBlock string) (*Result, error) {
	failed := func(raw string, err error) (*Result, error) {
		return &Result{Justification: FailedJustification, RawOutput: raw}, err
	}

	system, err := prompts.Get("evaluation.json", "system")
	if err != nil {
		return failed("", err)
	}
	userTemplate, err := prompts.Get("evaluation.json", "user")
	if err != nil {
		return failed("", err)
	}

	if strategyBlock == "" {
		strategyBlock = "(none)"
	}
	user := prompts.Format(userTemplate, map[string]string{
		"Reply":          reply,
		"Rebuttal":       rebuttal,
		"Comment":        comment,
		"StrategiesUsed": strategyBlock,
	})

	response, err := client.GenerateJSON(ctx, llm.Request{
		System:      system,
		User:        user,
		Tier:        llm.TierAdvanced,
		Temperature: evalTemperature,
		MaxTokens:   evalMaxTokens,
	})
	if err != nil {
		return failed("", err)
	}

	return parseEvaluation(response)
}

// wireEvaluation tolerates a score sent as number or string. The raw
// message keeps a malformed score from failing the whole unmarshal.
type wireEvaluation struct {
	ConfidenceScore       json.RawMessage `json:"confidence_score"`
	Justification         string          `json:"justification"`
	SuggestedImprovements string          `json:"suggested_improvements"`
	UltimateReply         string          `json:"ultimate_reply"`
}

// parseScore accepts a JSON number or a numeric string ("8", "8.5").
func parseScore(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	score, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

func parseEvaluation(response string) (*Result, error) {
	raw, err := llm.ExtractJSONObject(response)
	if err != nil {
		return &Result{Justification: FailedJustification, RawOutput: response}, err
	}

	var wire wireEvaluation
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return &Result{Justification: FailedJustification, RawOutput: response}, err
	}

	result := &Result{
		Justification:         strings.TrimSpace(wire.Justification),
		SuggestedImprovements: strings.TrimSpace(wire.SuggestedImprovements),
		UltimateReply:         strings.TrimSpace(wire.UltimateReply),
		RawOutput:             raw,
	}
	if result.Justification == "" {
		result.Justification = FailedJustification
	}

	if score, ok := parseScore(wire.ConfidenceScore); ok && score >= 0 && score <= 10 {
		result.ConfidenceScore = &score
	}

	return result, nil
}
