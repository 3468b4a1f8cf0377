package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	def := DefaultConfig()
	if cfg.Scoring.TagWeight != def.Scoring.TagWeight {
		t.Errorf("TagWeight = %v, want default %v", cfg.Scoring.TagWeight, def.Scoring.TagWeight)
	}
	if cfg.Drift.ThresholdPercent != 10.0 {
		t.Errorf("ThresholdPercent = %v, want 10.0", cfg.Drift.ThresholdPercent)
	}
	if cfg.AI.Backend != "subprocess" {
		t.Errorf("AI.Backend = %q, want subprocess", cfg.AI.Backend)
	}
}

func TestLoadConfigPartialOverride(t *testing.T) {
	dir := t.TempDir()
	cimDir := filepath.Join(dir, ModelDirName)
	if err := os.MkdirAll(cimDir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `{"scoring": {"tagWeight": 2.5}, "drift": {"thresholdPercent": 25}}`
	if err := os.WriteFile(filepath.Join(cimDir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Scoring.TagWeight != 2.5 {
		t.Errorf("TagWeight = %v, want 2.5", cfg.Scoring.TagWeight)
	}
	if cfg.Drift.ThresholdPercent != 25 {
		t.Errorf("ThresholdPercent = %v, want 25", cfg.Drift.ThresholdPercent)
	}
	// Untouched keys keep their defaults
	if cfg.Scoring.SummaryWeight != 0.7 {
		t.Errorf("SummaryWeight = %v, want default 0.7", cfg.Scoring.SummaryWeight)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Scoring.MaxResults = 25
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Scoring.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", loaded.Scoring.MaxResults)
	}
}
