// Package app wires the interpretation server together: observability,
// scratch storage, the provider gateway, the session registry and the
// HTTP surface. New builds all subsystems, Run executes the serving
// loop, and Shutdown tears everything down in reverse-init order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/config"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/gateway"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/health"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/observe"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/resilience"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/session"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/ws"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/audio"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/stt"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/tts"
)

// Providers holds one interface value per provider slot, plus the
// configured names for metrics and logs. Nil slots are optional
// providers that were not configured. Populated by main via the config
// registry.
type Providers struct {
	STT     stt.Provider
	STTName string

	Translate     translate.Provider
	TranslateName string

	TranslateFallback     translate.Provider
	TranslateFallbackName string

	TTS     tts.Provider
	TTSName string
}

// guardProviders wraps each configured provider in a circuit-breaker
// protected group so a backend that starts failing hard is rejected
// fast instead of being called on every utterance. An open breaker
// surfaces as a transient fault, which routes the pipeline onto its
// fallback path.
func guardProviders(p *Providers) *Providers {
	fc := resilience.FallbackConfig{}
	out := *p
	if p.STT != nil {
		out.STT = resilience.NewSTTFallback(p.STT, p.STTName, fc)
	}
	if p.Translate != nil {
		out.Translate = resilience.NewTranslateFallback(p.Translate, p.TranslateName, fc)
	}
	if p.TranslateFallback != nil {
		out.TranslateFallback = resilience.NewTranslateFallback(p.TranslateFallback, p.TranslateFallbackName, fc)
	}
	if p.TTS != nil {
		out.TTS = resilience.NewTTSFallback(p.TTS, p.TTSName, fc)
	}
	return &out
}

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	scratch  *audio.Scratch
	gw       *gateway.Gateway
	registry *session.Registry
	handler  http.Handler
	server   *http.Server

	// closers run in reverse-init order during Shutdown.
	closers []func(context.Context) error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRegistry injects a session registry instead of building one from config.
func WithRegistry(r *session.Registry) Option {
	return func(a *App) { a.registry = r }
}

// New creates an App by wiring all subsystems together. The providers
// struct comes from main (populated via the config registry).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "verblizrd",
	})
	if err != nil {
		return nil, fmt.Errorf("app: init telemetry: %w", err)
	}
	a.closers = append(a.closers, otelShutdown)

	a.scratch, err = audio.NewScratch(cfg.Session.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("app: init scratch store: %w", err)
	}
	if purged := a.scratch.Purge(); purged > 0 {
		slog.Info("purged stale scratch artifacts", "count", purged, "dir", a.scratch.Dir())
	}

	guarded := guardProviders(providers)
	a.gw, err = gateway.New(gateway.Config{
		STT:               guarded.STT,
		STTName:           guarded.STTName,
		Translate:         guarded.Translate,
		TranslateName:     guarded.TranslateName,
		TranslateFallback: guarded.TranslateFallback,
		FallbackName:      guarded.TranslateFallbackName,
		TTS:               guarded.TTS,
		TTSName:           guarded.TTSName,
		SampleRate:        cfg.Session.EffectiveSampleRate(),
	})
	if err != nil {
		return nil, fmt.Errorf("app: init gateway: %w", err)
	}

	if a.registry == nil {
		pipeline := session.NewPipeline(session.PipelineConfig{
			Gateway:    a.gw,
			Scratch:    a.scratch,
			SampleRate: cfg.Session.EffectiveSampleRate(),
		})
		pairA, pairB := cfg.Session.EffectiveHousePair()
		a.registry = session.NewRegistry(session.RegistryConfig{
			Pipeline: pipeline,
			Tuning: session.Tuning{
				FlushThreshold: cfg.Session.FlushThreshold(),
				VADGrace:       cfg.Session.VADGrace(),
				MaxSegment:     cfg.Session.MaxSegment(),
				SampleRate:     cfg.Session.EffectiveSampleRate(),
				QueueLen:       cfg.Session.EffectiveQueueLen(),
				HousePairA:     pairA,
				HousePairB:     pairB,
			},
			IdleTimeout:   cfg.Session.IdleTimeout(),
			SweepInterval: cfg.Session.SweepInterval(),
		})
	}

	a.handler = a.buildHandler()
	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// buildHandler assembles the HTTP surface: the WebSocket endpoint, the
// Prometheus scrape endpoint and the health probes, all behind the
// tracing middleware.
func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(ws.Config{Registry: a.registry}))
	mux.Handle("/metrics", promhttp.Handler())

	health.New(health.Check{
		Name: "scratch",
		Probe: func(context.Context) error {
			_, err := os.Stat(a.scratch.Dir())
			return err
		},
	}).Register(mux)

	return observe.Middleware(observe.DefaultMetrics())(mux)
}

// Handler exposes the assembled HTTP surface, mainly for tests.
func (a *App) Handler() http.Handler { return a.handler }

// Registry exposes the session registry, mainly for tests.
func (a *App) Registry() *session.Registry { return a.registry }

// Run serves until ctx is cancelled or the listener fails. The idle
// sweeper runs alongside the server and stops all sessions on exit.
func (a *App) Run(ctx context.Context) error {
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	sweepDone := make(chan struct{})
	go func() {
		a.registry.RunSweeper(sweepCtx)
		close(sweepDone)
	}()
	defer func() {
		sweepCancel()
		<-sweepDone
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.listenAndServe()
	}()

	slog.Info("server listening", "addr", a.cfg.Server.ListenAddr,
		"tls", a.cfg.Server.TLS != nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) listenAndServe() error {
	if tls := a.cfg.Server.TLS; tls != nil {
		return a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
	}
	return a.server.ListenAndServe()
}

// Serve runs the server on a caller-supplied listener. Tests use this
// with a loopback listener on an ephemeral port.
func (a *App) Serve(l net.Listener) error {
	return a.server.Serve(l)
}

// Shutdown drains the HTTP server, stops every session and runs the
// remaining closers in reverse-init order. It respects the context
// deadline: closers still pending when ctx expires are skipped.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}
		a.registry.StopAll()

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](ctx); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
