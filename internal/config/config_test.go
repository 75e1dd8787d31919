package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != "shellmind" {
		t.Errorf("Name = %q, want shellmind", cfg.Name)
	}
	if cfg.Memory.MaxSessionMessages != 20 {
		t.Errorf("MaxSessionMessages = %d, want 20", cfg.Memory.MaxSessionMessages)
	}
	if cfg.Memory.RecallLimit != 3 {
		t.Errorf("RecallLimit = %d, want 3", cfg.Memory.RecallLimit)
	}
	if cfg.Memory.MinSimilarity != 0.5 {
		t.Errorf("MinSimilarity = %v, want 0.5", cfg.Memory.MinSimilarity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Model != "gpt-4o" {
		t.Errorf("expected default model, got %q", cfg.Oracle.Model)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
oracle:
  model: local-llama
  timeout: 30s
memory:
  max_session_messages: 10
execution:
  max_replans: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Model != "local-llama" {
		t.Errorf("Model = %q, want local-llama", cfg.Oracle.Model)
	}
	if cfg.GetOracleTimeout() != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.GetOracleTimeout())
	}
	if cfg.Memory.MaxSessionMessages != 10 {
		t.Errorf("MaxSessionMessages = %d, want 10", cfg.Memory.MaxSessionMessages)
	}
	// Unset fields keep defaults
	if cfg.Embedding.Backend != "ollama" {
		t.Errorf("Backend = %q, want ollama default", cfg.Embedding.Backend)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Oracle.Model = "custom-model"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Oracle.Model != "custom-model" {
		t.Errorf("Model = %q, want custom-model", loaded.Oracle.Model)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SHELLMIND_ORACLE_URL", "http://localhost:8000/v1")
	t.Setenv("SHELLMIND_DB", "/tmp/test.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.BaseURL != "http://localhost:8000/v1" {
		t.Errorf("BaseURL = %q, env override not applied", cfg.Oracle.BaseURL)
	}
	if cfg.Store.DatabasePath != "/tmp/test.db" {
		t.Errorf("DatabasePath = %q, env override not applied", cfg.Store.DatabasePath)
	}
}

func TestReplanCeilingClamp(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below range", 1, 3},
		{"at floor", 3, 3},
		{"default", 4, 4},
		{"at ceiling", 5, 5},
		{"above range", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Execution.MaxReplans = tt.in
			if got := cfg.ReplanCeiling(); got != tt.want {
				t.Errorf("ReplanCeiling() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidateRejectsOddRing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.MaxSessionMessages = 7
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for odd max_session_messages")
	}

	cfg.Memory.MaxSessionMessages = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max_session_messages")
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Backend = "word2vec"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown embedding backend")
	}
}
