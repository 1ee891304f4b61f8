package observability

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/reply-coach/internal/evaluation"
	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/replying"
	"github.com/jonathan/reply-coach/internal/strategy"
)

func TestPrintTags(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	p.PrintTags([]string{"health", "skeptical"}, []string{"health"})

	out := buf.String()
	assert.Contains(t, out, "EXTRACTED TAGS")
	assert.Contains(t, out, "health, skeptical")
	assert.Contains(t, out, "Matched:   health")
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "└")
}

func TestPrintTags_Empty(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	p.PrintTags(nil, nil)

	assert.Contains(t, buf.String(), "No tags extracted.")
}

func TestPrintStrategies_TruncatesList(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	strategies := make([]strategy.Strategy, 7)
	for i := range strategies {
		strategies[i] = strategy.Strategy{Title: "Strategy"}
	}
	p.PrintStrategies(strategies)

	assert.Contains(t, buf.String(), "... and 2 more")
}

func TestPrintRun_Clarification(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	p.PrintRun(&pipeline.Run{
		ID:      uuid.New(),
		Version: 1,
		Reply: &replying.Result{
			NeedsClarification: true,
			FollowUpQuestion:   "Who is the audience?",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "CLARIFICATION NEEDED")
	assert.Contains(t, out, "Who is the audience?")
	assert.NotContains(t, out, "SUGGESTED REPLY")
}

func TestPrintRun_FullResult(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	score := 8.5
	p.PrintRun(&pipeline.Run{
		ID:      uuid.New(),
		Version: 2,
		Tags:    []string{"health"},
		Reply: &replying.Result{
			Message:     "Major dietetic bodies say planned vegan diets are adequate.",
			Explanation: "Health framing for a skeptical reader.",
			InputType:   "comment",
		},
		Rebuttal: "Supplements are still needed.",
		Evaluation: &evaluation.Result{
			ConfidenceScore: &score,
			Justification:   "Well sourced.",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "SUGGESTED REPLY (v2)")
	assert.Contains(t, out, "LIKELY REBUTTAL")
	assert.Contains(t, out, "EVALUATION")
	assert.Contains(t, out, "Confidence: 8.5 / 10")
}

func TestPrintEvaluation_FailureMarker(t *testing.T) {
	var buf strings.Builder
	p := NewPrinter(&buf)

	p.PrintEvaluation(&evaluation.Result{Justification: evaluation.FailedJustification})

	assert.Contains(t, buf.String(), "Evaluation failed")
}

func TestWrapLine(t *testing.T) {
	lines := wrapLine("one two three four", 9)
	assert.Equal(t, []string{"one two", "three", "four"}, lines)

	lines = wrapLine("short", 20)
	assert.Equal(t, []string{"short"}, lines)

	lines = wrapLine(strings.Repeat("x", 30), 10)
	assert.Equal(t, []string{strings.Repeat("x", 7) + "..."}, lines)
}
