package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads settings from a file, auto-detecting format by extension,
// overlays environment variables, and validates the result.
// Supported extensions: .yaml, .yml, .json
//
// An empty path returns defaults with environment overrides applied.
func Load(path string) (Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("parse yaml: %w", err)
			}
		case ".json":
			if err := json.Unmarshal(data, &s); err != nil {
				return Settings{}, fmt.Errorf("parse json: %w", err)
			}
		default:
			return Settings{}, fmt.Errorf("unsupported config file extension: %s", ext)
		}
	}

	s.applyEnv()

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("validate config: %w", err)
	}
	return s, nil
}
