package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "recall.db" {
		t.Errorf("database path = %q, want recall.db", cfg.Database.Path)
	}
	if cfg.Memory.RecentLimit != 5 || cfg.Memory.SummaryThreshold != 15 {
		t.Errorf("unexpected memory defaults: %+v", cfg.Memory)
	}
	if cfg.Memory.StoreThreshold != 0.55 {
		t.Errorf("store threshold = %v, want 0.55", cfg.Memory.StoreThreshold)
	}
	if len(cfg.Embedding.Providers) == 0 || cfg.Embedding.Providers[len(cfg.Embedding.Providers)-1] != "hash" {
		t.Errorf("provider chain should end in hash fallback: %v", cfg.Embedding.Providers)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: /tmp/other.db
embedding:
  providers: [openai, hash]
  openai:
    model: text-embedding-3-large
memory:
  recent_limit: 8
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("database path = %q, want /tmp/other.db", cfg.Database.Path)
	}
	if cfg.Memory.RecentLimit != 8 {
		t.Errorf("recent limit = %d, want 8", cfg.Memory.RecentLimit)
	}
	// Untouched fields keep their defaults.
	if cfg.Memory.SummaryThreshold != 15 {
		t.Errorf("summary threshold = %d, want default 15", cfg.Memory.SummaryThreshold)
	}
	if cfg.Embedding.Ollama.Model != "mxbai-embed-large" {
		t.Errorf("ollama model = %q, want default", cfg.Embedding.Ollama.Model)
	}
	if cfg.Embedding.OpenAI.Model != "text-embedding-3-large" {
		t.Errorf("openai model = %q, want override", cfg.Embedding.OpenAI.Model)
	}
}

func TestLoad_EnvironmentCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test-123")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.OpenAI.APIKey != "sk-test-123" {
		t.Errorf("expected env API key to apply, got %q", cfg.Embedding.OpenAI.APIKey)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("RECALL_CONFIG_PATH", "/etc/recall/config.yaml")
	if got := GetConfigPath(); got != "/etc/recall/config.yaml" {
		t.Errorf("GetConfigPath = %q, want env override", got)
	}
}
