package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.MinIntentScore != 8 {
		t.Errorf("MinIntentScore: got %d, want 8", d.MinIntentScore)
	}
	if d.VetoScore != -50 {
		t.Errorf("VetoScore: got %d, want -50", d.VetoScore)
	}
	if d.CenterTolerance != 0.30 {
		t.Errorf("CenterTolerance: got %v, want 0.30", d.CenterTolerance)
	}
	if d.MutationDebounce != 500*time.Millisecond {
		t.Errorf("MutationDebounce: got %v", d.MutationDebounce)
	}
}

func TestLoadFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunables.yaml")
	yaml := "min_intent_score: 12\nchrome_zone_px: 96\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.MinIntentScore != 12 {
		t.Errorf("MinIntentScore: got %d, want 12", got.MinIntentScore)
	}
	if got.ChromeZonePx != 96 {
		t.Errorf("ChromeZonePx: got %v, want 96", got.ChromeZonePx)
	}
	// Untouched keys still get defaults.
	if got.MutationDebounce != 500*time.Millisecond {
		t.Errorf("MutationDebounce: got %v, want default 500ms", got.MutationDebounce)
	}
	if got.RelBonus != 25 {
		t.Errorf("RelBonus: got %d, want 25", got.RelBonus)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("min_intent_score: [not a number"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
