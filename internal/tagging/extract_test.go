package tagging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reply-coach/internal/llm"
	"github.com/jonathan/reply-coach/internal/llm/llmtest"
)

func TestExtractTags_ParsesArray(t *testing.T) {
	fake := llmtest.NewFake(`["skeptical", "health"]`)

	tags, err := ExtractTags(context.Background(), fake, "Vegan diets are missing protein", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"skeptical", "health"}, tags)
}

func TestExtractTags_ToleratesProseAndFences(t *testing.T) {
	fake := llmtest.NewFake("Here you go:\n```json\n[\"defensive\", \"hostile\"]\n```")

	tags, err := ExtractTags(context.Background(), fake, "comment", "draft")
	require.NoError(t, err)
	assert.Equal(t, []string{"defensive", "hostile"}, tags)
}

func TestExtractTags_NormalizesAndCaps(t *testing.T) {
	fake := llmtest.NewFake(`["Skeptical", " skeptical ", "a", "b", "c", "d", "e"]`)

	tags, err := ExtractTags(context.Background(), fake, "comment", "")
	require.NoError(t, err)
	assert.Len(t, tags, 5)
	assert.Equal(t, "skeptical", tags[0])
}

func TestExtractTags_CallFailure(t *testing.T) {
	fake := &llmtest.Fake{Errs: []error{errors.New("boom")}}

	tags, err := ExtractTags(context.Background(), fake, "comment", "")
	assert.Error(t, err)
	assert.Empty(t, tags)

	var extractErr *ExtractError
	assert.ErrorAs(t, err, &extractErr)
}

func TestExtractTags_UnparsableResponse(t *testing.T) {
	fake := llmtest.NewFake("I cannot produce tags for this input.")

	tags, err := ExtractTags(context.Background(), fake, "comment", "")
	assert.Error(t, err)
	assert.Empty(t, tags)
}

func TestExtractTags_SubstitutesPlaceholders(t *testing.T) {
	fake := llmtest.NewFake(`["curious"]`)

	_, err := ExtractTags(context.Background(), fake, "only a comment", "")
	require.NoError(t, err)

	require.Len(t, fake.Requests, 1)
	prompt := fake.Requests[0].User
	assert.Contains(t, prompt, "only a comment")
	assert.Contains(t, prompt, "(none)")
}

func TestExtractTags_UsesLowTemperatureLiteTier(t *testing.T) {
	fake := llmtest.NewFake(`["curious"]`)

	_, err := ExtractTags(context.Background(), fake, "c", "d")
	require.NoError(t, err)

	require.Len(t, fake.Requests, 1)
	assert.Equal(t, llm.TierLite, fake.Requests[0].Tier)
	assert.InDelta(t, 0.1, fake.Requests[0].Temperature, 0.001)
}
