package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/gateway"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/langdetect"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/observe"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/audio"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
)

// Pipeline turns one audio segment into a finished utterance result:
// transcription, language resolution, translation and optional speech
// synthesis. One invocation runs per segment; the session guarantees at
// most one invocation is active per session.
type Pipeline struct {
	gw         *gateway.Gateway
	scratch    *audio.Scratch
	sampleRate int
	metrics    *observe.Metrics
	log        *slog.Logger
}

// PipelineConfig carries the pipeline's collaborators. Gateway is
// required; Scratch may be nil to skip on-disk segment buffering.
type PipelineConfig struct {
	Gateway    *gateway.Gateway
	Scratch    *audio.Scratch
	SampleRate int
	Metrics    *observe.Metrics
	Logger     *slog.Logger
}

// NewPipeline builds a pipeline, applying defaults for zero values.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		gw:         cfg.Gateway,
		scratch:    cfg.Scratch,
		sampleRate: cfg.SampleRate,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
	}
}

// Job is one segment of audio plus the direction configuration in force
// when it was flushed.
type Job struct {
	UtteranceID string
	PCM         []byte

	// SampleRate of PCM. Zero falls back to the pipeline default.
	SampleRate int

	Source string // configured source language, may be "auto"
	Target string // configured target language, may be "auto"
	Mode   Mode

	HousePairA string
	HousePairB string

	Synthesize bool
}

// Result is the outcome of running one Job. Exactly one of three shapes
// applies: Err is set, Empty is true, or the translation fields are
// populated.
type Result struct {
	UtteranceID      string
	Transcript       string
	DetectedLanguage string
	TranslatedText   string
	TargetLanguage   string
	UsedFallback     bool
	Audio            []byte
	Empty            bool
	Err              error
}

// Run processes one segment. onPartial, when non-nil, is invoked with
// the transcript as soon as transcription completes, before translation
// begins. Run never panics; provider failures come back in Result.Err.
func (p *Pipeline) Run(ctx context.Context, job Job, onPartial func(PartialNotification)) Result {
	res := Result{UtteranceID: job.UtteranceID}

	ctx, span := observe.StartSpan(ctx, "session.pipeline",
		trace.WithAttributes(observe.Attr("utterance.id", job.UtteranceID)))
	defer span.End()

	start := time.Now()
	defer func() {
		p.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	}()

	rate := job.SampleRate
	if rate <= 0 {
		rate = p.sampleRate
	}

	if p.scratch != nil {
		path, err := p.scratch.WriteWAV(job.PCM, rate)
		if err != nil {
			p.log.Warn("scratch write failed, continuing in-memory",
				"utterance_id", job.UtteranceID, "error", err)
		} else {
			defer p.scratch.Remove(path)
		}
	}

	wav := audio.EncodeWAV(job.PCM, rate)

	hint := job.Source
	if hint == "auto" {
		hint = ""
	}
	tr, err := p.gw.Transcribe(ctx, wav, hint)
	if err != nil {
		res.Err = err
		return res
	}
	if tr.Text == "" {
		res.Empty = true
		p.metrics.RecordUtterance(ctx, "empty")
		return res
	}
	res.Transcript = tr.Text

	detected := tr.Language
	if detected == "" {
		detected = langdetect.Detect(tr.Text)
	}
	res.DetectedLanguage = detected

	if onPartial != nil {
		onPartial(PartialNotification{
			UtteranceID: job.UtteranceID,
			Transcript:  tr.Text,
			Language:    detected,
		})
	}

	target := p.resolveTarget(job, detected)
	res.TargetLanguage = target

	if detected != "" && detected == target {
		// Already in the target language, nothing to translate.
		res.TranslatedText = tr.Text
	} else {
		translated, usedFallback, err := p.translate(ctx, tr.Text, detected, target)
		res.UsedFallback = usedFallback
		if err != nil {
			res.Err = err
			p.metrics.RecordUtterance(ctx, "error")
			return res
		}
		res.TranslatedText = translated
	}

	if job.Synthesize && p.gw.HasTTS() {
		clip, err := p.gw.Synthesize(ctx, res.TranslatedText, target)
		if err != nil {
			// Synthesis failure degrades to text-only output.
			p.log.Warn("speech synthesis failed",
				"utterance_id", job.UtteranceID, "error", err)
		} else {
			res.Audio = clip
		}
	}

	p.metrics.RecordUtterance(ctx, "final")
	return res
}

// translate runs the primary provider and, when the failure is
// retryable and a fallback is configured, retries exactly once on the
// fallback. Non-retryable failures surface immediately.
func (p *Pipeline) translate(ctx context.Context, text, source, target string) (string, bool, error) {
	out, err := p.gw.Translate(ctx, text, source, target)
	if err == nil {
		return out, false, nil
	}
	if !fault.Retryable(err) || !p.gw.HasFallback() {
		return "", false, err
	}
	p.log.Warn("primary translation failed, trying fallback",
		"error", err, "kind", fault.KindOf(err))
	out, ferr := p.gw.TranslateFallback(ctx, text, source, target)
	if ferr != nil {
		return "", true, ferr
	}
	return out, true, nil
}

// resolveTarget decides which language this utterance is translated
// into. Fixed mode always aims at the configured target. Alternating
// mode aims at whichever side of the language pair was not spoken; when
// both sides were configured as "auto" the house pair applies.
func (p *Pipeline) resolveTarget(job Job, detected string) string {
	if job.Mode != ModeAlternating {
		if job.Target == "" || job.Target == "auto" {
			return job.HousePairB
		}
		return job.Target
	}

	a, b := job.Source, job.Target
	if a == "" || a == "auto" || b == "" || b == "auto" {
		a, b = job.HousePairA, job.HousePairB
	}
	if strings.EqualFold(detected, b) {
		return a
	}
	return b
}
