package remote

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reply-coach/internal/evaluation"
	"github.com/jonathan/reply-coach/internal/pipeline"
	"github.com/jonathan/reply-coach/internal/replying"
	"github.com/jonathan/reply-coach/internal/strategy"
)

func TestRunDocument_Shape(t *testing.T) {
	score := 8.0
	run := &pipeline.Run{
		ID:          uuid.New(),
		SessionID:   uuid.New(),
		Version:     2,
		Input:       replying.Input{Comment: "Lions eat meat"},
		Tags:        []string{"naturalistic"},
		MatchedTags: []string{"naturalistic"},
		MatchedStrategies: []strategy.Strategy{
			{Title: "Appeal to moral agency", Tags: []string{"naturalistic"}},
		},
		Reply: &replying.Result{
			Message:   "Lions also fight for territory, but we don't model our ethics on them.",
			InputType: "comment",
		},
		Rebuttal: "Nature is still a useful guide for diet.",
		Evaluation: &evaluation.Result{
			ConfidenceScore: &score,
			Justification:   "Addresses the fallacy directly.",
		},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	doc := runDocument{
		RunID:             run.ID,
		SessionID:         run.SessionID,
		Version:           run.Version,
		CreatedAt:         run.CreatedAt,
		Input:             run.Input,
		Tags:              run.Tags,
		MatchedTags:       run.MatchedTags,
		MatchedStrategies: []string{"Appeal to moral agency"},
		Reply:             run.Reply,
		Rebuttal:          run.Rebuttal,
		Evaluation: &evaluationSummary{
			ConfidenceScore: run.Evaluation.ConfidenceScore,
			Justification:   run.Evaluation.Justification,
		},
	}

	b, err := json.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))

	assert.Equal(t, float64(2), decoded["version"])
	assert.Equal(t, "Lions eat meat", decoded["input"].(map[string]any)["comment"])
	assert.Equal(t, []any{"Appeal to moral agency"}, decoded["matched_strategies"])
	assert.Equal(t, float64(8), decoded["evaluation"].(map[string]any)["confidence_score"])
	// absent sections are omitted, not null-filled
	assert.NotContains(t, string(b), "suggested_improvements")
}
