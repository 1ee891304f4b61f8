package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reply-coach/internal/llm"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"LLM_PROVIDER", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"DATABASE_PATH", "LISTEN_ADDR", "LOG_LEVEL",
		"ENABLE_REBUTTAL", "ENABLE_EVALUATION",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "data/replycoach.db", cfg.DatabasePath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.EnableRebuttal)
	assert.False(t, cfg.EnableEvaluation)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("ENABLE_REBUTTAL", "true")
	t.Setenv("MODEL_STANDARD", "gemini-2.0-pro")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.True(t, cfg.EnableRebuttal)
	assert.Equal(t, "gemini-2.0-pro", cfg.ModelStd)
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("ENABLE_EVALUATION", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENABLE_EVALUATION")
}

func TestLoadFile_OverlaysValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"provider": "openai",
		"database_path": "/tmp/custom.db",
		"enable_evaluation": true
	}`), 0644))

	cfg := &Config{Provider: "gemini", ListenAddr: ":9090"}
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "/tmp/custom.db", cfg.DatabasePath)
	assert.True(t, cfg.EnableEvaluation)
	// values the file doesn't mention survive
	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.LoadFile(""))
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.json")))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0644))
	assert.Error(t, cfg.LoadFile(bad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid openai",
			cfg:  Config{Provider: "openai", OpenAIAPIKey: "k", DatabasePath: "d.db"},
		},
		{
			name:    "openai missing key",
			cfg:     Config{Provider: "openai", DatabasePath: "d.db"},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "gemini missing key",
			cfg:     Config{Provider: "gemini", DatabasePath: "d.db"},
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "claude", DatabasePath: "d.db"},
			wantErr: "invalid provider",
		},
		{
			name:    "missing database path",
			cfg:     Config{Provider: "openai", OpenAIAPIKey: "k"},
			wantErr: "DATABASE_PATH",
		},
		{
			name: "missing strategies file is not a validation error",
			cfg:  Config{Provider: "openai", OpenAIAPIKey: "k", DatabasePath: "d.db", StrategiesPath: "/nonexistent/strategies.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLLMConfig_TierOverrides(t *testing.T) {
	cfg := Config{Provider: "openai", ModelStd: "gpt-4.1"}
	lc := cfg.LLMConfig()

	assert.Equal(t, llm.ProviderOpenAI, lc.Provider)
	assert.Equal(t, "gpt-4.1", lc.GetModel(llm.TierStandard))
	assert.Equal(t, llm.DefaultOpenAIConfig().GetModel(llm.TierLite), lc.GetModel(llm.TierLite))
}

func TestAPIKey_FollowsProvider(t *testing.T) {
	cfg := Config{Provider: "gemini", OpenAIAPIKey: "oa", GeminiAPIKey: "ge"}
	assert.Equal(t, "ge", cfg.APIKey())

	cfg.Provider = "openai"
	assert.Equal(t, "oa", cfg.APIKey())
}
