// Package config provides the configuration schema, loader, and provider
// registry for the interpretation server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for the server.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Session   SessionConfig   `yaml:"session"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT               ProviderEntry `yaml:"stt"`
	Translate         ProviderEntry `yaml:"translate"`
	TranslateFallback ProviderEntry `yaml:"translate_fallback"`
	TTS               ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper",
	// "googletx").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1",
	// "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// Session tuning defaults. Applied by the accessor methods when the YAML
// leaves a field at zero.
const (
	DefaultFlushThresholdMS  = 1500
	DefaultVADGraceMS        = 100
	DefaultMaxSegmentMS      = 30000
	DefaultIdleTimeoutSec    = 1800
	DefaultSweepIntervalSec  = 300
	DefaultSampleRate        = 16000
	DefaultEventQueueLen     = 64
	DefaultHousePairA        = "en"
	DefaultHousePairB        = "es"
)

// SessionConfig tunes segmentation, sweeping, and language defaults for
// interpretation sessions.
type SessionConfig struct {
	// FlushThresholdMS is the buffered-audio duration that forces a segment
	// flush while listening. Default 1500.
	FlushThresholdMS int `yaml:"flush_threshold_ms"`

	// VADGraceMS is the delay after a VAD end marker before the segment is
	// flushed. Default 100.
	VADGraceMS int `yaml:"vad_grace_ms"`

	// MaxSegmentMS caps a single segment's duration regardless of VAD
	// activity. Default 30000.
	MaxSegmentMS int `yaml:"max_segment_ms"`

	// IdleTimeoutSec is how long a session may go without client events
	// before the registry sweep stops it. Default 1800.
	IdleTimeoutSec int `yaml:"idle_timeout_sec"`

	// SweepIntervalSec is how often the registry sweep runs. Default 300.
	SweepIntervalSec int `yaml:"sweep_interval_sec"`

	// SampleRate is the PCM sample rate clients must send. Default 16000.
	SampleRate int `yaml:"sample_rate"`

	// ScratchDir is where transient per-segment WAV files are written.
	// Empty means the OS temp directory.
	ScratchDir string `yaml:"scratch_dir"`

	// HousePair is the language pair assumed when a session starts with both
	// directions on auto-detect. Default ["en", "es"].
	HousePair []string `yaml:"house_pair"`

	// EventQueueLen is the per-session inbound event queue capacity.
	// Default 64.
	EventQueueLen int `yaml:"event_queue_len"`
}

// FlushThreshold returns the flush threshold as a duration.
func (s SessionConfig) FlushThreshold() time.Duration {
	return msOrDefault(s.FlushThresholdMS, DefaultFlushThresholdMS)
}

// VADGrace returns the VAD grace delay as a duration.
func (s SessionConfig) VADGrace() time.Duration {
	return msOrDefault(s.VADGraceMS, DefaultVADGraceMS)
}

// MaxSegment returns the segment duration cap as a duration.
func (s SessionConfig) MaxSegment() time.Duration {
	return msOrDefault(s.MaxSegmentMS, DefaultMaxSegmentMS)
}

// IdleTimeout returns the session idle timeout as a duration.
func (s SessionConfig) IdleTimeout() time.Duration {
	return secOrDefault(s.IdleTimeoutSec, DefaultIdleTimeoutSec)
}

// SweepInterval returns the registry sweep interval as a duration.
func (s SessionConfig) SweepInterval() time.Duration {
	return secOrDefault(s.SweepIntervalSec, DefaultSweepIntervalSec)
}

// EffectiveSampleRate returns the configured sample rate or the default.
func (s SessionConfig) EffectiveSampleRate() int {
	if s.SampleRate > 0 {
		return s.SampleRate
	}
	return DefaultSampleRate
}

// EffectiveQueueLen returns the configured event queue length or the default.
func (s SessionConfig) EffectiveQueueLen() int {
	if s.EventQueueLen > 0 {
		return s.EventQueueLen
	}
	return DefaultEventQueueLen
}

// EffectiveHousePair returns the configured house pair or the en↔es default.
func (s SessionConfig) EffectiveHousePair() (string, string) {
	if len(s.HousePair) == 2 && s.HousePair[0] != "" && s.HousePair[1] != "" {
		return s.HousePair[0], s.HousePair[1]
	}
	return DefaultHousePairA, DefaultHousePairB
}

func msOrDefault(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Millisecond
}

func secOrDefault(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}
