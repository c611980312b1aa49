package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("mode %q is invalid; valid values: prompter, caption", cfg.Mode))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Recognizer.Endpoint == "" {
		errs = append(errs, errors.New("recognizer.endpoint is required"))
	} else if !strings.HasPrefix(cfg.Recognizer.Endpoint, "ws://") && !strings.HasPrefix(cfg.Recognizer.Endpoint, "wss://") {
		errs = append(errs, fmt.Errorf("recognizer.endpoint %q must be a ws:// or wss:// URL", cfg.Recognizer.Endpoint))
	}

	if cfg.Mode == ModePrompter && cfg.Reference.Path == "" {
		errs = append(errs, errors.New("reference.path is required in prompter mode"))
	}

	switch cfg.Translate.Provider {
	case "", "openai":
	default:
		errs = append(errs, fmt.Errorf("translate.provider %q is unknown; valid values: openai", cfg.Translate.Provider))
	}
	if cfg.Translate.Provider != "" {
		if cfg.Translate.APIKey == "" {
			errs = append(errs, errors.New("translate.api_key is required when translate.provider is set"))
		}
		if cfg.Translate.TargetLang == "" {
			errs = append(errs, errors.New("translate.target_lang is required when translate.provider is set"))
		}
	}

	if cfg.Segmenter.TargetWords < 0 {
		errs = append(errs, fmt.Errorf("segmenter.target_words must not be negative, got %d", cfg.Segmenter.TargetWords))
	}
	if cfg.Recovery.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("recovery.max_retries must not be negative, got %d", cfg.Recovery.MaxRetries))
	}
	if cfg.AudioLevel.Threshold < 0 {
		errs = append(errs, fmt.Errorf("audio_level.threshold must not be negative, got %g", cfg.AudioLevel.Threshold))
	}

	return errors.Join(errs...)
}
