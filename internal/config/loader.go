package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":                {"whisper", "openai"},
	"translate":          {"googletx", "llm"},
	"translate_fallback": {"googletx", "llm"},
	"tts":                {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Providers. STT and a primary translator are mandatory; the fallback
	// translator and TTS are optional.
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.Translate.Name == "" {
		errs = append(errs, errors.New("providers.translate.name is required"))
	}
	if cfg.Providers.TranslateFallback.Name == "" {
		slog.Warn("providers.translate_fallback is not configured; translation failures will not be retried")
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("translate", cfg.Providers.Translate.Name)
	validateProviderName("translate_fallback", cfg.Providers.TranslateFallback.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	// Session tuning. Zero means default; negative is always a mistake.
	s := cfg.Session
	if s.FlushThresholdMS < 0 {
		errs = append(errs, fmt.Errorf("session.flush_threshold_ms %d must not be negative", s.FlushThresholdMS))
	}
	if s.VADGraceMS < 0 {
		errs = append(errs, fmt.Errorf("session.vad_grace_ms %d must not be negative", s.VADGraceMS))
	}
	if s.MaxSegmentMS < 0 {
		errs = append(errs, fmt.Errorf("session.max_segment_ms %d must not be negative", s.MaxSegmentMS))
	}
	if s.MaxSegmentMS > 0 && s.FlushThresholdMS > 0 && s.MaxSegmentMS < s.FlushThresholdMS {
		errs = append(errs, fmt.Errorf("session.max_segment_ms %d must be >= flush_threshold_ms %d", s.MaxSegmentMS, s.FlushThresholdMS))
	}
	if s.IdleTimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("session.idle_timeout_sec %d must not be negative", s.IdleTimeoutSec))
	}
	if s.SweepIntervalSec < 0 {
		errs = append(errs, fmt.Errorf("session.sweep_interval_sec %d must not be negative", s.SweepIntervalSec))
	}
	if s.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("session.sample_rate %d must not be negative", s.SampleRate))
	}
	if len(s.HousePair) != 0 && len(s.HousePair) != 2 {
		errs = append(errs, fmt.Errorf("session.house_pair must list exactly two language codes, got %d", len(s.HousePair)))
	}
	if len(s.HousePair) == 2 {
		if s.HousePair[0] == "" || s.HousePair[1] == "" {
			errs = append(errs, errors.New("session.house_pair entries must be non-empty language codes"))
		} else if s.HousePair[0] == s.HousePair[1] {
			errs = append(errs, fmt.Errorf("session.house_pair entries must differ, got %q twice", s.HousePair[0]))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
