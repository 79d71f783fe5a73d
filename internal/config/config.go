// Package config resolves the samus home directory and loads the optional
// config.yaml that tunes the LLM planner, embeddings, and heartbeat defaults.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the optional per-home configuration loaded from <home>/config.yaml.
// Environment variables override file values where noted.
type Config struct {
	// Planner LLM (OpenAI-compatible chat completions).
	LLMBaseURL string `yaml:"llm_base_url"` // env SAMUS_LLM_URL
	LLMModel   string `yaml:"llm_model"`    // env SAMUS_LLM_MODEL

	// Embeddings for the memory store.
	EmbedBaseURL string `yaml:"embed_base_url"`
	EmbedModel   string `yaml:"embed_model"` // env OPENAI_EMBEDDING_MODEL

	// Heartbeat defaults.
	HeartbeatInterval int    `yaml:"heartbeat_interval"` // seconds
	Announce          bool   `yaml:"announce"`
	Voice             string `yaml:"voice"`

	// Memory store driver: "sqlite" (default) or "postgres".
	DBDriver string `yaml:"db_driver"`
	DBURL    string `yaml:"db_url"` // env DATABASE_URL
}

// Defaults mirror the zero-config behavior: local SQLite, half-hour heartbeat.
func defaults() Config {
	return Config{
		LLMBaseURL:        "https://api.openai.com",
		LLMModel:          "gpt-4o-mini",
		EmbedBaseURL:      "https://api.openai.com",
		EmbedModel:        "text-embedding-3-small",
		HeartbeatInterval: 1800,
		DBDriver:          "sqlite",
	}
}

// Load reads <home>/config.yaml if present and applies env overrides.
// A missing file is not an error; defaults are returned.
func Load(home string) (Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(filepath.Join(home, "config.yaml"))
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}
	if v := os.Getenv("SAMUS_LLM_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("SAMUS_LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("OPENAI_EMBEDDING_MODEL"); v != "" {
		cfg.EmbedModel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.DBURL == "" {
		cfg.DBURL = v
	}
	if cfg.DBDriver == "" {
		cfg.DBDriver = "sqlite"
	}
	return cfg, nil
}

// Save writes the config to <home>/config.yaml.
func Save(home string, cfg Config) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(home, "config.yaml"), data, 0o644)
}
