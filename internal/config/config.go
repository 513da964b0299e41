package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from gamesmith.yml.
type ProjectConfig struct {
	OutputDir      string   `yaml:"outputDir,omitempty"`
	UploadDir      string   `yaml:"uploadDir,omitempty"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes,omitempty"`
	Providers      []string `yaml:"providers,omitempty"` // remote provider endpoints
	SessionTTL     string   `yaml:"sessionTTL,omitempty"`
	Verbose        bool     `yaml:"verbose,omitempty"`
}

// Load attempts to read gamesmith.yml or gamesmith.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"gamesmith.yml", "gamesmith.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// TTL parses SessionTTL as a duration. Empty means 0, which lets the caller
// apply its default.
func (c *ProjectConfig) TTL() (time.Duration, error) {
	if c.SessionTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("config: parse sessionTTL: %w", err)
	}
	return d, nil
}
