package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	ClearCache()

	cases := []struct {
		filename string
		key      string
	}{
		{"tags.json", "extract"},
		{"reply.json", "persona"},
		{"reply.json", "format"},
		{"reply.json", "strategies"},
		{"reply.json", "no_strategies"},
		{"reply.json", "revision_mild"},
		{"reply.json", "revision_strong"},
		{"rebuttal.json", "system"},
		{"rebuttal.json", "user"},
		{"evaluation.json", "system"},
		{"evaluation.json", "user"},
	}

	for _, tc := range cases {
		prompt, err := Get(tc.filename, tc.key)
		require.NoError(t, err, "%s/%s", tc.filename, tc.key)
		assert.NotEmpty(t, prompt)
	}
}

func TestGet_UnknownKey(t *testing.T) {
	_, err := Get("reply.json", "nonexistent")
	assert.Error(t, err)
}

func TestGet_UnknownFile(t *testing.T) {
	_, err := Get("missing.json", "persona")
	assert.Error(t, err)
}

func TestFormat_ReplacesPlaceholders(t *testing.T) {
	result := Format("Comment: {{.Comment}}, Draft: {{.Draft}}", map[string]string{
		"Comment": "Vegan diets are missing protein",
		"Draft":   "(none)",
	})

	assert.Equal(t, "Comment: Vegan diets are missing protein, Draft: (none)", result)
}

func TestFormat_LeavesUnknownPlaceholders(t *testing.T) {
	result := Format("{{.Known}} and {{.Unknown}}", map[string]string{"Known": "x"})
	assert.Equal(t, "x and {{.Unknown}}", result)
}

func TestMustGet_PanicsOnMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("missing.json", "nope")
	})
}
