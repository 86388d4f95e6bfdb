// Package gateway presents the external speech and translation services as a
// uniform capability surface for the utterance pipeline.
//
// The gateway owns no retry logic: it forwards one call to one provider,
// normalizes the failure onto the fault taxonomy, and records request and
// error metrics plus a span per call. The pipeline decides what to do with a
// failure; the explicit fallback path is exposed as [Gateway.TranslateFallback].
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/observe"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/stt"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/tts"
)

// ErrNoFallback is returned by [Gateway.TranslateFallback] when no fallback
// translator is configured.
var ErrNoFallback = errors.New("gateway: no fallback translator configured")

// ErrNoTTS is returned by [Gateway.Synthesize] when no TTS provider is
// configured.
var ErrNoTTS = errors.New("gateway: no tts provider configured")

// Config names the providers wired into a [Gateway]. Names appear as the
// "provider" attribute on metrics and in log lines.
type Config struct {
	STT               stt.Provider
	STTName           string
	Translate         translate.Provider
	TranslateName     string
	TranslateFallback translate.Provider // optional
	FallbackName      string
	TTS               tts.Provider // optional
	TTSName           string

	// Metrics defaults to [observe.DefaultMetrics] when nil.
	Metrics *observe.Metrics

	// SampleRate is the PCM sample rate of segments passed to Transcribe.
	SampleRate int
}

// Gateway is the single entry point for all provider calls.
// It is safe for concurrent use.
type Gateway struct {
	stt          stt.Provider
	sttName      string
	translate    translate.Provider
	translateNam string
	fallback     translate.Provider
	fallbackName string
	tts          tts.Provider
	ttsName      string

	metrics    *observe.Metrics
	sampleRate int
}

// New creates a Gateway. STT and the primary translator are required.
func New(cfg Config) (*Gateway, error) {
	if cfg.STT == nil {
		return nil, errors.New("gateway: stt provider is required")
	}
	if cfg.Translate == nil {
		return nil, errors.New("gateway: translate provider is required")
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = 16000
	}
	return &Gateway{
		stt:          cfg.STT,
		sttName:      cfg.STTName,
		translate:    cfg.Translate,
		translateNam: cfg.TranslateName,
		fallback:     cfg.TranslateFallback,
		fallbackName: cfg.FallbackName,
		tts:          cfg.TTS,
		ttsName:      cfg.TTSName,
		metrics:      m,
		sampleRate:   sr,
	}, nil
}

// HasFallback reports whether a fallback translator is configured.
func (g *Gateway) HasFallback() bool { return g.fallback != nil }

// HasTTS reports whether a TTS provider is configured.
func (g *Gateway) HasTTS() bool { return g.tts != nil }

// Transcribe sends one WAV-wrapped segment to the STT provider. langHint may
// be empty or "auto", in which case the provider detects the language itself.
func (g *Gateway) Transcribe(ctx context.Context, wav []byte, langHint string) (stt.Result, error) {
	hint := langHint
	if hint == "auto" {
		hint = ""
	}

	ctx, span := observe.StartSpan(ctx, "gateway.transcribe",
		trace.WithAttributes(observe.Attr("provider", g.sttName)))
	defer span.End()

	start := time.Now()
	res, err := g.stt.Transcribe(ctx, stt.Request{
		WAV:          wav,
		LanguageHint: hint,
		SampleRate:   g.sampleRate,
	})
	g.metrics.STTDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", g.sttName)))

	if err != nil {
		err = fault.Wrap(g.sttName, fault.KindTransient, err)
		g.record(ctx, g.sttName, "stt", err)
		return stt.Result{}, err
	}
	g.record(ctx, g.sttName, "stt", nil)
	res.Text = strings.TrimSpace(res.Text)
	return res, nil
}

// Translate sends text to the primary translator. No retries: a failure is
// returned classified, and the caller chooses whether to invoke
// [Gateway.TranslateFallback].
func (g *Gateway) Translate(ctx context.Context, text, source, target string) (string, error) {
	return g.translateWith(ctx, g.translate, g.translateNam, text, source, target)
}

// TranslateFallback sends text to the fallback translator. Returns
// [ErrNoFallback] when none is configured.
func (g *Gateway) TranslateFallback(ctx context.Context, text, source, target string) (string, error) {
	if g.fallback == nil {
		return "", ErrNoFallback
	}
	g.metrics.TranslateFallbacks.Add(ctx, 1)
	return g.translateWith(ctx, g.fallback, g.fallbackName, text, source, target)
}

func (g *Gateway) translateWith(ctx context.Context, p translate.Provider, name, text, source, target string) (string, error) {
	if source == "auto" {
		source = ""
	}

	ctx, span := observe.StartSpan(ctx, "gateway.translate",
		trace.WithAttributes(
			observe.Attr("provider", name),
			observe.Attr("target", target),
		))
	defer span.End()

	start := time.Now()
	out, err := p.Translate(ctx, translate.Request{Text: text, Source: source, Target: target})
	g.metrics.TranslateDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", name)))

	if err != nil {
		err = fault.Wrap(name, fault.KindTransient, err)
		g.record(ctx, name, "translate", err)
		return "", err
	}
	g.record(ctx, name, "translate", nil)
	return out, nil
}

// Synthesize renders translated text as speech. Returns [ErrNoTTS] when no
// TTS provider is configured.
func (g *Gateway) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if g.tts == nil {
		return nil, ErrNoTTS
	}

	ctx, span := observe.StartSpan(ctx, "gateway.synthesize",
		trace.WithAttributes(observe.Attr("provider", g.ttsName)))
	defer span.End()

	start := time.Now()
	res, err := g.tts.Synthesize(ctx, tts.Request{Text: text, Language: lang})
	g.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", g.ttsName)))

	if err != nil {
		err = fault.Wrap(g.ttsName, fault.KindTransient, err)
		g.record(ctx, g.ttsName, "tts", err)
		return nil, err
	}
	g.record(ctx, g.ttsName, "tts", nil)
	return res.Audio, nil
}

// record files the request counter and, on failure, the error counter.
func (g *Gateway) record(ctx context.Context, provider, stage string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		g.metrics.RecordProviderError(ctx, provider, string(fault.KindOf(err)))
	}
	g.metrics.RecordProviderRequest(ctx, provider, stage, status)
}
