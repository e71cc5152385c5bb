// Package config loads service settings from YAML or JSON files with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"
)

// Settings holds the full service configuration.
type Settings struct {
	Server   ServerSettings  `yaml:"server" json:"server"`
	Store    StoreSettings   `yaml:"store" json:"store"`
	Defaults DefaultSettings `yaml:"defaults" json:"defaults"`
	Search   SearchSettings  `yaml:"search" json:"search"`
	Backends BackendSettings `yaml:"backends" json:"backends"`
	Log      LogSettings     `yaml:"log" json:"log"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Addr            string   `yaml:"addr" json:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// StoreSettings configures session and provider persistence.
type StoreSettings struct {
	// Driver selects the checkpoint store: "sqlite" or "memory".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the SQLite database file. Ignored for the memory driver.
	Path string `yaml:"path" json:"path"`
}

// DefaultSettings holds per-turn behavior defaults.
type DefaultSettings struct {
	// Language is the fallback response language tag ("en", "zh", "ja", "ko").
	Language string `yaml:"language" json:"language"`
	// HistoryWindow is how many trailing messages are sent to models.
	HistoryWindow int `yaml:"history_window" json:"history_window"`
	// MaxRetries is the retry count for backend calls after the first attempt.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// Timeout bounds a single backend call.
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// SearchSettings configures the solution search step.
type SearchSettings struct {
	// GitHubToken authorizes GitHub REST calls. Empty means anonymous.
	GitHubToken string `yaml:"github_token" json:"github_token"`
	// MaxResults caps solutions returned per search.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// BackendSettings holds API keys for built-in model backends.
// File values are overridden by environment variables.
type BackendSettings struct {
	OpenAIKey    string `yaml:"openai_key" json:"openai_key"`
	AnthropicKey string `yaml:"anthropic_key" json:"anthropic_key"`
	GeminiKey    string `yaml:"gemini_key" json:"gemini_key"`
}

// LogSettings configures structured logging output.
type LogSettings struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" json:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// Default returns settings with sensible defaults applied.
func Default() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(5 * time.Minute),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Store: StoreSettings{
			Driver: "sqlite",
			Path:   "nodemedic.db",
		},
		Defaults: DefaultSettings{
			Language:      "en",
			HistoryWindow: 10,
			MaxRetries:    3,
			Timeout:       Duration(2 * time.Minute),
		},
		Search: SearchSettings{
			MaxResults: 5,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks settings for obvious misconfiguration.
func (s Settings) Validate() error {
	switch s.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", s.Store.Driver)
	}
	if s.Store.Driver == "sqlite" && s.Store.Path == "" {
		return fmt.Errorf("store.path is required for the sqlite driver")
	}
	if s.Defaults.HistoryWindow <= 0 {
		return fmt.Errorf("defaults.history_window must be positive")
	}
	if s.Defaults.MaxRetries < 0 {
		return fmt.Errorf("defaults.max_retries must not be negative")
	}
	return nil
}

// applyEnv overlays secret values from the environment.
func (s *Settings) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.Backends.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		s.Backends.AnthropicKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		s.Backends.GeminiKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		s.Search.GitHubToken = v
	}
	if v := os.Getenv("NODEMEDIC_ADDR"); v != "" {
		s.Server.Addr = v
	}
	if v := os.Getenv("NODEMEDIC_DB"); v != "" {
		s.Store.Path = v
	}
}
