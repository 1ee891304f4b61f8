package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONBlock_JSONFence(t *testing.T) {
	input := "```json\n{\"message\": \"hi\"}\n```"
	assert.Equal(t, `{"message": "hi"}`, CleanJSONBlock(input))
}

func TestCleanJSONBlock_GenericFence(t *testing.T) {
	input := "```\n{\"message\": \"hi\"}\n```"
	assert.Equal(t, `{"message": "hi"}`, CleanJSONBlock(input))
}

func TestCleanJSONBlock_Bare(t *testing.T) {
	input := `{"message": "hi"}`
	assert.Equal(t, input, CleanJSONBlock(input))
}

func TestExtractJSONObject_LeadingProse(t *testing.T) {
	input := "Sure! Here is your reply:\n{\"message\": \"Try one meal.\", \"needs_clarification\": false}\nHope that helps."

	got, err := ExtractJSONObject(input)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message": "Try one meal.", "needs_clarification": false}`, got)
}

func TestExtractJSONObject_FencedWithProse(t *testing.T) {
	input := "Sure! ```json\n{\"message\":\"Try one meal.\",\"explanation\":\"short\",\"input_type\":\"comment\",\"needs_clarification\":false}\n```"

	got, err := ExtractJSONObject(input)
	require.NoError(t, err)
	assert.Contains(t, got, `"message":"Try one meal."`)
	assert.Contains(t, got, `"input_type":"comment"`)
}

func TestExtractJSONObject_NestedObjects(t *testing.T) {
	input := `prefix {"outer": {"inner": "value"}, "n": 1} suffix`

	got, err := ExtractJSONObject(input)
	require.NoError(t, err)
	assert.JSONEq(t, `{"outer": {"inner": "value"}, "n": 1}`, got)
}

func TestExtractJSONObject_BracesInsideStrings(t *testing.T) {
	input := `{"message": "use {curly} braces", "ok": true}`

	got, err := ExtractJSONObject(input)
	require.NoError(t, err)
	assert.JSONEq(t, input, got)
}

func TestExtractJSONObject_Truncated(t *testing.T) {
	_, err := ExtractJSONObject(`{"message": "Hi`)
	assert.Error(t, err)
}

func TestExtractJSONObject_NoObject(t *testing.T) {
	_, err := ExtractJSONObject("no json here")
	assert.Error(t, err)
}

func TestExtractJSONArray_WithProse(t *testing.T) {
	input := "Here are the tags:\n[\"skeptical\", \"health\"]\n"

	got, err := ExtractJSONArray(input)
	require.NoError(t, err)
	assert.JSONEq(t, `["skeptical", "health"]`, got)
}

func TestExtractJSONArray_Fenced(t *testing.T) {
	input := "```json\n[\"defensive\"]\n```"

	got, err := ExtractJSONArray(input)
	require.NoError(t, err)
	assert.JSONEq(t, `["defensive"]`, got)
}

func TestExtractJSONArray_Truncated(t *testing.T) {
	_, err := ExtractJSONArray(`["skeptical", "hea`)
	assert.Error(t, err)
}

func TestGetModel_FallbackChain(t *testing.T) {
	cfg := &Config{
		Provider: ProviderOpenAI,
		Models:   map[ModelTier]string{TierLite: "gpt-4o-mini"},
	}

	assert.Equal(t, "gpt-4o-mini", cfg.GetModel(TierAdvanced))
}

func TestWithModel_DoesNotMutateOriginal(t *testing.T) {
	cfg := DefaultOpenAIConfig()
	modified := cfg.WithModel(TierStandard, "gpt-4.1")

	assert.Equal(t, "gpt-4.1", modified.GetModel(TierStandard))
	assert.Equal(t, "gpt-4o", cfg.GetModel(TierStandard))
}
