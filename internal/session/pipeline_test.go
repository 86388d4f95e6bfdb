package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/gateway"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/audio"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/stt"
	sttmock "github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/stt/mock"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/tts"
	ttsmock "github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/tts/mock"
	txmock "github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate/mock"
)

type testProviders struct {
	stt *sttmock.Provider
	tx  *txmock.Provider
	fb  *txmock.Provider
	tts *ttsmock.Provider
}

func newTestPipeline(t *testing.T, p testProviders, scratch *audio.Scratch) *Pipeline {
	t.Helper()
	cfg := gateway.Config{
		STT:           p.stt,
		STTName:       "stt-test",
		Translate:     p.tx,
		TranslateName: "tx-test",
		SampleRate:    16000,
	}
	if p.fb != nil {
		cfg.TranslateFallback = p.fb
		cfg.FallbackName = "fb-test"
	}
	if p.tts != nil {
		cfg.TTS = p.tts
		cfg.TTSName = "tts-test"
	}
	gw, err := gateway.New(cfg)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	return NewPipeline(PipelineConfig{
		Gateway:    gw,
		Scratch:    scratch,
		SampleRate: 16000,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func fixedJob(target string) Job {
	return Job{
		UtteranceID: "u1",
		PCM:         pcmBytes(1000, 16000),
		Source:      "auto",
		Target:      target,
		Mode:        ModeFixed,
		HousePairA:  "en",
		HousePairB:  "es",
	}
}

func TestPipelineRunSuccess(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello world", Language: "en"}},
		tx:  &txmock.Provider{Result: "hola mundo"},
	}
	pl := newTestPipeline(t, p, nil)

	var partial *PartialNotification
	res := pl.Run(context.Background(), fixedJob("es"), func(n PartialNotification) {
		partial = &n
	})

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Empty {
		t.Fatal("result marked empty")
	}
	if res.Transcript != "hello world" || res.TranslatedText != "hola mundo" {
		t.Fatalf("unexpected texts: %q / %q", res.Transcript, res.TranslatedText)
	}
	if res.DetectedLanguage != "en" || res.TargetLanguage != "es" {
		t.Fatalf("languages = %q -> %q, want en -> es", res.DetectedLanguage, res.TargetLanguage)
	}
	if res.UsedFallback {
		t.Fatal("fallback flagged on a clean run")
	}

	if partial == nil {
		t.Fatal("partial never emitted")
	}
	if partial.Transcript != "hello world" || partial.Language != "en" {
		t.Fatalf("partial = %+v", partial)
	}

	calls := p.tx.Calls()
	if len(calls) != 1 {
		t.Fatalf("translate calls = %d, want 1", len(calls))
	}
	if calls[0].Text != "hello world" || calls[0].Source != "en" || calls[0].Target != "es" {
		t.Fatalf("translate request = %+v", calls[0])
	}
}

func TestPipelineEmptyTranscript(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{}},
		tx:  &txmock.Provider{Result: "never"},
	}
	pl := newTestPipeline(t, p, nil)

	called := false
	res := pl.Run(context.Background(), fixedJob("es"), func(PartialNotification) { called = true })

	if !res.Empty || res.Err != nil {
		t.Fatalf("result = %+v, want Empty", res)
	}
	if called {
		t.Fatal("partial emitted for empty segment")
	}
	if len(p.tx.Calls()) != 0 {
		t.Fatal("translate called for empty segment")
	}
}

func TestPipelineDetectFallsBackToTranscript(t *testing.T) {
	t.Parallel()
	// Provider reports no language; detection runs on the transcript.
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "the cat and the dog"}},
		tx:  &txmock.Provider{Result: "el gato y el perro"},
	}
	pl := newTestPipeline(t, p, nil)

	res := pl.Run(context.Background(), fixedJob("es"), nil)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.DetectedLanguage != "en" {
		t.Fatalf("detected = %q, want en", res.DetectedLanguage)
	}
	if calls := p.tx.Calls(); len(calls) != 1 || calls[0].Source != "en" {
		t.Fatalf("translate calls = %+v", calls)
	}
}

func TestPipelineSkipsTranslationWhenAlreadyTarget(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "ya estamos aqui", Language: "es"}},
		tx:  &txmock.Provider{Result: "never"},
	}
	pl := newTestPipeline(t, p, nil)

	res := pl.Run(context.Background(), fixedJob("es"), nil)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.TranslatedText != "ya estamos aqui" {
		t.Fatalf("translated = %q, want transcript passthrough", res.TranslatedText)
	}
	if len(p.tx.Calls()) != 0 {
		t.Fatal("translate called although text was already in the target language")
	}
}

func TestPipelineFallbackOnTransient(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello", Language: "en"}},
		tx:  &txmock.Provider{Err: fault.New("tx-test", fault.KindTransient, errors.New("upstream 503"))},
		fb:  &txmock.Provider{Result: "hallo"},
	}
	pl := newTestPipeline(t, p, nil)

	res := pl.Run(context.Background(), fixedJob("de"), nil)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !res.UsedFallback {
		t.Fatal("fallback not flagged")
	}
	if res.TranslatedText != "hallo" {
		t.Fatalf("translated = %q, want fallback result", res.TranslatedText)
	}
	if len(p.tx.Calls()) != 1 || len(p.fb.Calls()) != 1 {
		t.Fatalf("calls = %d primary / %d fallback, want exactly 1 each",
			len(p.tx.Calls()), len(p.fb.Calls()))
	}
}

func TestPipelineQuotaFallsBack(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello", Language: "en"}},
		tx:  &txmock.Provider{Err: fault.New("tx-test", fault.KindQuota, errors.New("429"))},
		fb:  &txmock.Provider{Result: "hallo"},
	}
	pl := newTestPipeline(t, p, nil)

	res := pl.Run(context.Background(), fixedJob("de"), nil)
	if res.Err != nil || !res.UsedFallback {
		t.Fatalf("result = %+v, want fallback success", res)
	}
}

func TestPipelineAuthSurfacesWithoutFallback(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello", Language: "en"}},
		tx:  &txmock.Provider{Err: fault.New("tx-test", fault.KindAuth, errors.New("bad key"))},
		fb:  &txmock.Provider{Result: "never"},
	}
	pl := newTestPipeline(t, p, nil)

	res := pl.Run(context.Background(), fixedJob("de"), nil)
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if fault.KindOf(res.Err) != fault.KindAuth {
		t.Fatalf("kind = %v, want auth", fault.KindOf(res.Err))
	}
	if len(p.fb.Calls()) != 0 {
		t.Fatal("fallback consulted for a non-retryable failure")
	}
}

func TestPipelineBothTranslatorsFail(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello", Language: "en"}},
		tx:  &txmock.Provider{Err: fault.New("tx-test", fault.KindTransient, errors.New("down"))},
		fb:  &txmock.Provider{Err: fault.New("fb-test", fault.KindTransient, errors.New("also down"))},
	}
	pl := newTestPipeline(t, p, nil)

	res := pl.Run(context.Background(), fixedJob("de"), nil)
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if !res.UsedFallback {
		t.Fatal("fallback attempt not flagged")
	}
	if len(p.tx.Calls()) != 1 || len(p.fb.Calls()) != 1 {
		t.Fatal("expected exactly one call per translator")
	}
}

func TestPipelineSynthesize(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello", Language: "en"}},
		tx:  &txmock.Provider{Result: "hola"},
		tts: &ttsmock.Provider{Result: tts.Result{Audio: []byte{1, 2, 3}, MIMEType: "audio/mpeg"}},
	}
	pl := newTestPipeline(t, p, nil)

	job := fixedJob("es")
	job.Synthesize = true
	res := pl.Run(context.Background(), job, nil)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Audio) != 3 {
		t.Fatalf("audio = %d bytes, want 3", len(res.Audio))
	}
	calls := p.tts.Calls()
	if len(calls) != 1 || calls[0].Text != "hola" || calls[0].Language != "es" {
		t.Fatalf("tts calls = %+v", calls)
	}
}

func TestPipelineSynthesisFailureDegradesToText(t *testing.T) {
	t.Parallel()
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello", Language: "en"}},
		tx:  &txmock.Provider{Result: "hola"},
		tts: &ttsmock.Provider{Err: fault.New("tts-test", fault.KindTransient, errors.New("down"))},
	}
	pl := newTestPipeline(t, p, nil)

	job := fixedJob("es")
	job.Synthesize = true
	res := pl.Run(context.Background(), job, nil)
	if res.Err != nil {
		t.Fatalf("synthesis failure must not fail the utterance: %v", res.Err)
	}
	if res.Audio != nil {
		t.Fatal("audio present despite synthesis failure")
	}
	if res.TranslatedText != "hola" {
		t.Fatalf("translated = %q", res.TranslatedText)
	}
}

func TestPipelineScratchCleanup(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	scratch, err := audio.NewScratch(dir)
	if err != nil {
		t.Fatalf("NewScratch: %v", err)
	}
	p := testProviders{
		stt: &sttmock.Provider{Result: stt.Result{Text: "hello", Language: "en"}},
		tx:  &txmock.Provider{Result: "hola"},
	}
	pl := newTestPipeline(t, p, scratch)

	if res := pl.Run(context.Background(), fixedJob("es"), nil); res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}

	left, err := filepath.Glob(filepath.Join(scratch.Dir(), "*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("scratch files left behind: %v", left)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("scratch dir missing: %v", err)
	}
}

func TestResolveTarget(t *testing.T) {
	t.Parallel()
	pl := NewPipeline(PipelineConfig{})

	tests := []struct {
		name     string
		job      Job
		detected string
		want     string
	}{
		{"fixed explicit", Job{Mode: ModeFixed, Target: "de", HousePairB: "es"}, "en", "de"},
		{"fixed auto uses house pair", Job{Mode: ModeFixed, Target: "auto", HousePairB: "es"}, "en", "es"},
		{"alternating toward b", Job{Mode: ModeAlternating, Source: "en", Target: "es"}, "en", "es"},
		{"alternating toward a", Job{Mode: ModeAlternating, Source: "en", Target: "es"}, "es", "en"},
		{"alternating unknown detected", Job{Mode: ModeAlternating, Source: "en", Target: "es"}, "", "es"},
		{"alternating auto pair", Job{Mode: ModeAlternating, Source: "auto", Target: "auto", HousePairA: "en", HousePairB: "es"}, "es", "en"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := pl.resolveTarget(tc.job, tc.detected); got != tc.want {
				t.Fatalf("resolveTarget = %q, want %q", got, tc.want)
			}
		})
	}
}
