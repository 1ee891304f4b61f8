// Package config provides configuration loading and validation. Values come
// from the environment first (a .env file is honored), optionally overlaid
// on a JSON config file, with CLI flags merged last by the command layer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/jonathan/reply-coach/internal/llm"
)

// Config holds all application configuration.
type Config struct {
	// LLM
	Provider     string `json:"provider,omitempty"`       // "openai" (default) or "gemini"
	OpenAIAPIKey string `json:"openai_api_key,omitempty"` // usually from OPENAI_API_KEY
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // usually from GEMINI_API_KEY
	ModelLite    string `json:"model_lite,omitempty"`     // tier overrides, empty = provider default
	ModelStd     string `json:"model_standard,omitempty"`
	ModelAdv     string `json:"model_advanced,omitempty"`

	// Strategies
	StrategiesPath string `json:"strategies_path,omitempty"` // external strategy JSON, empty = embedded set

	// Persistence
	DatabasePath      string `json:"database_path,omitempty"`       // SQLite record store
	MirrorCSVPath     string `json:"mirror_csv_path,omitempty"`     // optional CSV mirror
	MirrorDatabaseURL string `json:"mirror_database_url,omitempty"` // optional PostgreSQL mirror

	// Stages
	EnableRebuttal   bool `json:"enable_rebuttal,omitempty"`
	EnableEvaluation bool `json:"enable_evaluation,omitempty"`

	// Server
	ListenAddr string `json:"listen_addr,omitempty"`

	// Logging
	LogLevel string `json:"log_level,omitempty"`
	Verbose  bool   `json:"verbose,omitempty"`
}

// Load reads configuration from environment variables. A .env file is
// loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Provider:          getEnv("LLM_PROVIDER", string(llm.ProviderOpenAI)),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		ModelLite:         getEnv("MODEL_LITE", ""),
		ModelStd:          getEnv("MODEL_STANDARD", ""),
		ModelAdv:          getEnv("MODEL_ADVANCED", ""),
		StrategiesPath:    getEnv("STRATEGIES_PATH", ""),
		DatabasePath:      getEnv("DATABASE_PATH", "data/replycoach.db"),
		MirrorCSVPath:     getEnv("MIRROR_CSV_PATH", ""),
		MirrorDatabaseURL: getEnv("MIRROR_DATABASE_URL", ""),
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.EnableRebuttal, err = getBoolEnv("ENABLE_REBUTTAL", false); err != nil {
		return nil, err
	}
	if cfg.EnableEvaluation, err = getBoolEnv("ENABLE_EVALUATION", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile reads a JSON config file and overlays its non-empty values on
// top of cfg. Environment values win only where the file says nothing.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable for running the
// pipeline.
func (c *Config) Validate() error {
	switch llm.Provider(c.Provider) {
	case llm.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when provider is openai")
		}
	case llm.ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when provider is gemini")
		}
	default:
		return fmt.Errorf("invalid provider: %s (must be 'openai' or 'gemini')", c.Provider)
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	// StrategiesPath is deliberately not checked here: a missing or
	// unreadable strategies file degrades to an empty store at wiring
	// time instead of blocking the pipeline.

	return nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	if llm.Provider(c.Provider) == llm.ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

// LLMConfig builds the llm.Config for the configured provider, applying
// any per-tier model overrides.
func (c *Config) LLMConfig() *llm.Config {
	var lc *llm.Config
	if llm.Provider(c.Provider) == llm.ProviderGemini {
		lc = llm.DefaultGeminiConfig()
	} else {
		lc = llm.DefaultOpenAIConfig()
	}
	if c.ModelLite != "" {
		lc = lc.WithModel(llm.TierLite, c.ModelLite)
	}
	if c.ModelStd != "" {
		lc = lc.WithModel(llm.TierStandard, c.ModelStd)
	}
	if c.ModelAdv != "" {
		lc = lc.WithModel(llm.TierAdvanced, c.ModelAdv)
	}
	return lc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
