package bench

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds file-based defaults for a benchmark run. Command-line
// flags override any value set here.
type Config struct {
	Store    string `yaml:"store"`
	InDir    string `yaml:"in_dir"`
	OutDir   string `yaml:"out_dir"`
	Reps     int    `yaml:"reps"`
	Warmups  int    `yaml:"warmups"`
	OmitHuge bool   `yaml:"omit_huge"`
	Compress bool   `yaml:"compress"`
}

// DefaultConfig mirrors the historical defaults: 1000 reps with 100
// warmups against a tmpfs store directory.
func DefaultConfig() Config {
	return Config{
		Store:   "/dev/shm/transferoor",
		InDir:   "in",
		OutDir:  "out",
		Reps:    1000,
		Warmups: 100,
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Reps <= 0 {
		return cfg, fmt.Errorf("config %s: reps must be positive", path)
	}

	if cfg.Warmups < 0 {
		return cfg, fmt.Errorf("config %s: warmups must not be negative", path)
	}

	return cfg, nil
}
