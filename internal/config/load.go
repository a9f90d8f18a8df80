package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. LADDER_INPUT_DIR.
const EnvPrefix = "LADDER"

// Load reads a job file on top of the defaults. JSON and YAML are accepted,
// chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := NewConfig("", "", "")
	// A file that sets the list replaces the defaults rather than merging.
	cfg.ThumbnailPercentages = nil

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.ThumbnailPercentages == nil {
		cfg.ThumbnailPercentages = append([]int(nil), DefaultThumbnailPercentages...)
	}
	return cfg, nil
}

// ApplyEnv overlays LADDER_* environment variables onto cfg. Variables that
// are not set leave the existing value alone.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("failed to load environment overrides: %w", err)
	}
	return nil
}
