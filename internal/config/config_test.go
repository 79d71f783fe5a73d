package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMModel != "gpt-4o-mini" || cfg.DBDriver != "sqlite" {
		t.Errorf("defaults: %+v", cfg)
	}
	if cfg.HeartbeatInterval != 1800 {
		t.Errorf("interval: %d", cfg.HeartbeatInterval)
	}
}

func TestLoadReadsYAML(t *testing.T) {
	home := t.TempDir()
	body := "llm_model: gpt-4o\nheartbeat_interval: 60\nannounce: true\nvoice: daniel\ndb_driver: postgres\n"
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLMModel != "gpt-4o" || cfg.HeartbeatInterval != 60 || !cfg.Announce {
		t.Errorf("cfg: %+v", cfg)
	}
	if cfg.Voice != "daniel" || cfg.DBDriver != "postgres" {
		t.Errorf("cfg: %+v", cfg)
	}
	// Values not in the file keep their defaults.
	if cfg.LLMBaseURL != "https://api.openai.com" {
		t.Errorf("base url: %s", cfg.LLMBaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SAMUS_LLM_URL", "http://localhost:11434")
	t.Setenv("SAMUS_LLM_MODEL", "llama3")
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLMBaseURL != "http://localhost:11434" || cfg.LLMModel != "llama3" {
		t.Errorf("cfg: %+v", cfg)
	}
}

func TestLoadMalformedYAMLErrors(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(home); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	want := Config{LLMModel: "gpt-4o", Voice: "samantha", HeartbeatInterval: 120, DBDriver: "sqlite"}
	if err := Save(home, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if got.LLMModel != "gpt-4o" || got.Voice != "samantha" || got.HeartbeatInterval != 120 {
		t.Errorf("cfg: %+v", got)
	}
}

func TestResolveHome(t *testing.T) {
	if got, err := ResolveHome("/tmp/custom"); err != nil || got != "/tmp/custom" {
		t.Errorf("override: %s, %v", got, err)
	}

	t.Setenv("SAMUS_HOME", "/tmp/envhome")
	if got, err := ResolveHome(""); err != nil || got != "/tmp/envhome" {
		t.Errorf("env: %s, %v", got, err)
	}

	t.Setenv("SAMUS_HOME", "")
	got, err := ResolveHome("")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != ".samus" {
		t.Errorf("default: %s", got)
	}
}

func TestHomeContext(t *testing.T) {
	t.Parallel()

	ctx := WithHome(context.Background(), "/tmp/h")
	if got, ok := HomeFrom(ctx); !ok || got != "/tmp/h" {
		t.Errorf("HomeFrom: %s, %v", got, ok)
	}
	if got := MustHomeFrom(ctx); got != "/tmp/h" {
		t.Errorf("MustHomeFrom: %s", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustHomeFrom should panic without a home")
		}
	}()
	_ = MustHomeFrom(context.Background())
}
