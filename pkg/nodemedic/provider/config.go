// Package provider manages model backend configurations: which API to
// call, with which key and model, and for fully custom backends the
// request templates that shape the call.
package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind identifies a backend family.
type Kind string

// Supported backend kinds.
const (
	KindGoogle    Kind = "google"
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindCustom    Kind = "custom"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindGoogle, KindOpenAI, KindAnthropic, KindCustom:
		return true
	}
	return false
}

// CustomSettings holds the request templates for a custom backend.
// Templates use $apiKey, $model, and $messages placeholders; headers
// and body must render to valid JSON after substitution.
type CustomSettings struct {
	Endpoint string `json:"endpoint"`
	Headers  string `json:"headers"`
	Body     string `json:"body"`
}

// DefaultCustomSettings returns templates for OpenAI-compatible APIs.
func DefaultCustomSettings() CustomSettings {
	return CustomSettings{
		Endpoint: "/chat/completions",
		Headers:  `{"Content-Type": "application/json", "Authorization": "Bearer $apiKey"}`,
		Body:     `{"model": "$model", "messages": $messages, "temperature": 0.5}`,
	}
}

// Normalize fills empty template fields with defaults.
func (s CustomSettings) Normalize() CustomSettings {
	defaults := DefaultCustomSettings()
	if s.Endpoint == "" {
		s.Endpoint = defaults.Endpoint
	}
	if s.Headers == "" {
		s.Headers = defaults.Headers
	}
	if s.Body == "" {
		s.Body = defaults.Body
	}
	return s
}

// Config is a stored backend configuration.
type Config struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"provider"`
	Name      string          `json:"name"`
	APIKey    string          `json:"api_key"`
	Model     string          `json:"model_name"`
	BaseURL   string          `json:"base_url,omitempty"`
	IsDefault bool            `json:"is_default"`
	Custom    *CustomSettings `json:"custom_config,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validation errors.
var (
	ErrCustomSettingsRequired = errors.New("custom_config is required for the custom provider")
	ErrCustomSettingsInvalid  = errors.New("custom_config is only allowed for the custom provider")
	ErrBaseURLRequired        = errors.New("base_url is required for the custom provider")
)

// Validate checks the config for structural problems.
func (c Config) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("unknown provider kind %q", c.Kind)
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.Model == "" {
		return errors.New("model_name is required")
	}
	if c.Kind == KindCustom {
		if c.Custom == nil {
			return ErrCustomSettingsRequired
		}
		if c.BaseURL == "" {
			return ErrBaseURLRequired
		}
	} else if c.Custom != nil {
		return ErrCustomSettingsInvalid
	}
	return nil
}

// Redacted returns a copy safe for listing responses: the API key is
// masked except for a short suffix.
func (c Config) Redacted() Config {
	if len(c.APIKey) > 4 {
		c.APIKey = "****" + c.APIKey[len(c.APIKey)-4:]
	} else if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// marshalCustom serializes custom settings for storage.
func marshalCustom(s *CustomSettings) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// unmarshalCustom deserializes custom settings from storage.
func unmarshalCustom(data []byte) (*CustomSettings, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var s CustomSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
