package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate"
	translatemock "github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate/mock"
)

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
providers:
  stt:
    name: whisper
    base_url: http://localhost:9000
    model: base.en
  translate:
    name: googletx
    api_key: google-key
  translate_fallback:
    name: llm
    api_key: sk-test
    model: gpt-4o-mini
    options:
      backend: openai
  tts:
    name: elevenlabs
    api_key: xi-key
session:
  flush_threshold_ms: 1200
  vad_grace_ms: 150
  idle_timeout_sec: 900
  sweep_interval_sec: 60
  sample_rate: 16000
  scratch_dir: /tmp/interp
  house_pair: [en, de]
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()
	cfg, err := LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.Model != "base.en" {
		t.Errorf("stt entry = %+v", cfg.Providers.STT)
	}
	if cfg.Providers.TranslateFallback.StringOption("backend", "") != "openai" {
		t.Errorf("fallback backend option = %+v", cfg.Providers.TranslateFallback.Options)
	}
	if cfg.Session.FlushThresholdMS != 1200 {
		t.Errorf("flush_threshold_ms = %d", cfg.Session.FlushThresholdMS)
	}
	a, b := cfg.Session.EffectiveHousePair()
	if a != "en" || b != "de" {
		t.Errorf("house pair = %s/%s", a, b)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_levle: info
providers:
  stt: {name: whisper}
  translate: {name: googletx}
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for misspelled field")
	}
}

func TestLoadFromReader_InvalidConfigRejected(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt: {name: whisper}
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected validation error for missing translate provider")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStringOption(t *testing.T) {
	t.Parallel()
	e := ProviderEntry{Options: map[string]any{"backend": "ollama", "timeout": 5}}
	if got := e.StringOption("backend", "openai"); got != "ollama" {
		t.Errorf("got %q", got)
	}
	if got := e.StringOption("timeout", "fallback"); got != "fallback" {
		t.Errorf("non-string option should yield default, got %q", got)
	}
	if got := e.StringOption("absent", "def"); got != "def" {
		t.Errorf("absent option should yield default, got %q", got)
	}
}

func TestRegistry_CreateRoundTrip(t *testing.T) {
	t.Parallel()
	r := NewRegistry()

	var seen ProviderEntry
	r.RegisterTranslate("fake", func(e ProviderEntry) (translate.Provider, error) {
		seen = e
		return &translatemock.Provider{Result: "ok"}, nil
	})

	p, err := r.CreateTranslate(ProviderEntry{Name: "fake", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected provider")
	}
	if seen.APIKey != "k" {
		t.Errorf("factory did not receive entry, got %+v", seen)
	}

	if _, err := r.CreateSTT(ProviderEntry{Name: "missing"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got %v", err)
	}
	if _, err := r.CreateTTS(ProviderEntry{Name: "missing"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got %v", err)
	}
}
