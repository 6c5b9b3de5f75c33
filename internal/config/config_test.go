package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.AIMinIntervalMs != 1000 || c.AITimeoutSec != 10 || c.CacheSize != 50 {
		t.Fatalf("unexpected gateway defaults: %+v", c)
	}
	if len(c.RateNumeratorHints) == 0 || len(c.RateDenominatorHints) == 0 {
		t.Fatalf("expected rate hint defaults")
	}
	if filepath.Base(c.HistoryPath) != "history.db" {
		t.Fatalf("unexpected history path: %s", c.HistoryPath)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "cfg.yaml")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Provider = "ollama"
	c.Model = "llama3.1"
	c.CacheSize = 7
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Provider != "ollama" || got.Model != "llama3.1" || got.CacheSize != 7 {
		t.Fatalf("values not persisted: %+v", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CSVDASH_PROVIDER", "none")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Provider != "none" {
		t.Fatalf("expected env override, got %q", c.Provider)
	}
}
