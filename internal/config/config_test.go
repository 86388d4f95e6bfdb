package config

import (
	"testing"
	"time"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Errorf("expected %q to be valid", l)
		}
	}
	if LogLevel("verbose").IsValid() {
		t.Error("expected verbose to be invalid")
	}
}

func TestSessionConfig_Defaults(t *testing.T) {
	t.Parallel()
	var s SessionConfig

	if got := s.FlushThreshold(); got != 1500*time.Millisecond {
		t.Errorf("FlushThreshold = %v, want 1.5s", got)
	}
	if got := s.VADGrace(); got != 100*time.Millisecond {
		t.Errorf("VADGrace = %v, want 100ms", got)
	}
	if got := s.MaxSegment(); got != 30*time.Second {
		t.Errorf("MaxSegment = %v, want 30s", got)
	}
	if got := s.IdleTimeout(); got != 30*time.Minute {
		t.Errorf("IdleTimeout = %v, want 30m", got)
	}
	if got := s.SweepInterval(); got != 5*time.Minute {
		t.Errorf("SweepInterval = %v, want 5m", got)
	}
	if got := s.EffectiveSampleRate(); got != 16000 {
		t.Errorf("EffectiveSampleRate = %d, want 16000", got)
	}
	a, b := s.EffectiveHousePair()
	if a != "en" || b != "es" {
		t.Errorf("EffectiveHousePair = %s/%s, want en/es", a, b)
	}
}

func TestSessionConfig_Overrides(t *testing.T) {
	t.Parallel()
	s := SessionConfig{
		FlushThresholdMS: 2000,
		VADGraceMS:       250,
		SampleRate:       8000,
		HousePair:        []string{"de", "fr"},
	}

	if got := s.FlushThreshold(); got != 2*time.Second {
		t.Errorf("FlushThreshold = %v, want 2s", got)
	}
	if got := s.VADGrace(); got != 250*time.Millisecond {
		t.Errorf("VADGrace = %v, want 250ms", got)
	}
	if got := s.EffectiveSampleRate(); got != 8000 {
		t.Errorf("EffectiveSampleRate = %d, want 8000", got)
	}
	a, b := s.EffectiveHousePair()
	if a != "de" || b != "fr" {
		t.Errorf("EffectiveHousePair = %s/%s, want de/fr", a, b)
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: ":8080", LogLevel: LogInfo},
		Providers: ProvidersConfig{
			STT:       ProviderEntry{Name: "whisper", BaseURL: "http://localhost:9000"},
			Translate: ProviderEntry{Name: "googletx", APIKey: "k"},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingRequiredProviders(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Providers.STT.Name = ""
	cfg.Providers.Translate.Name = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Server.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for bad log level")
	}
}

func TestValidate_IncompleteTLS(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Server.TLS = &TLSConfig{CertFile: "cert.pem"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for TLS without key_file")
	}
}

func TestValidate_NegativeTuning(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Session.FlushThresholdMS = -1
	cfg.Session.IdleTimeoutSec = -5
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative tuning values")
	}
}

func TestValidate_SegmentCapBelowThreshold(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Session.FlushThresholdMS = 2000
	cfg.Session.MaxSegmentMS = 1000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error when max_segment_ms < flush_threshold_ms")
	}
}

func TestValidate_HousePair(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		pair    []string
		wantErr bool
	}{
		{"unset", nil, false},
		{"two codes", []string{"en", "de"}, false},
		{"one code", []string{"en"}, true},
		{"empty entry", []string{"en", ""}, true},
		{"duplicate", []string{"en", "en"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Session.HousePair = tt.pair
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
