package bench

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
store: /dev/shm/other
in_dir: fixtures
reps: 50
warmups: 5
omit_huge: true
compress: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Store != "/dev/shm/other" {
		t.Errorf("store = %q", cfg.Store)
	}
	if cfg.InDir != "fixtures" {
		t.Errorf("in_dir = %q", cfg.InDir)
	}
	if cfg.Reps != 50 || cfg.Warmups != 5 {
		t.Errorf("reps/warmups = %d/%d, want 50/5", cfg.Reps, cfg.Warmups)
	}
	if !cfg.OmitHuge || !cfg.Compress {
		t.Error("omit_huge and compress should be set")
	}

	// Unset fields keep their defaults.
	if cfg.OutDir != DefaultConfig().OutDir {
		t.Errorf("out_dir = %q, want default", cfg.OutDir)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Reps != 1000 || cfg.Warmups != 100 {
		t.Errorf("defaults = %d/%d, want 1000/100", cfg.Reps, cfg.Warmups)
	}
}

func TestLoadConfigInvalidReps(t *testing.T) {
	path := writeConfig(t, "reps: -1\n")

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for negative reps")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeConfig(t, "reps: [not an int\n")

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
