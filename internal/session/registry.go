package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionExists is returned by Create when the id is already in use.
var ErrSessionExists = errors.New("session already exists")

const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Registry tracks live sessions by client-chosen id and reaps the ones
// that go idle.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	pipeline *Pipeline
	tuning   Tuning
	log      *slog.Logger

	idleTimeout   time.Duration
	sweepInterval time.Duration
}

// RegistryConfig configures a Registry. Pipeline is required; zero
// durations get defaults.
type RegistryConfig struct {
	Pipeline      *Pipeline
	Tuning        Tuning
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Logger        *slog.Logger
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		sessions:      make(map[string]*Session),
		pipeline:      cfg.Pipeline,
		tuning:        cfg.Tuning,
		log:           cfg.Logger,
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
	}
}

// Create registers a new session under id and starts its event loop.
// The session removes itself from the registry when the loop exits.
func (r *Registry) Create(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return nil, ErrSessionExists
	}
	s := NewSession(id, r.pipeline, r.tuning)
	r.sessions[id] = s

	go func() {
		s.Run(ctx)
		r.mu.Lock()
		if cur, ok := r.sessions[id]; ok && cur == s {
			delete(r.sessions, id)
		}
		r.mu.Unlock()
	}()
	return s, nil
}

// Get looks up a live session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove stops the session and drops it from the registry. Unknown ids
// are a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Stop()
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep stops every session that has been idle longer than the
// configured timeout and reports how many it reaped.
func (r *Registry) Sweep() int {
	cutoff := time.Now().Add(-r.idleTimeout)

	r.mu.RLock()
	var stale []*Session
	for _, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range stale {
		r.log.Info("reaping idle session", "session_id", s.ID,
			"idle", time.Since(s.LastActive()).Round(time.Second))
		s.Stop()
	}
	return len(stale)
}

// RunSweeper periodically sweeps idle sessions until ctx is cancelled.
// On exit every remaining session is stopped.
func (r *Registry) RunSweeper(ctx context.Context) {
	t := time.NewTicker(r.sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.StopAll()
			return
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.log.Info("idle sweep complete", "reaped", n)
			}
		}
	}
}

// StopAll stops every live session. Used during shutdown.
func (r *Registry) StopAll() {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()
	for _, s := range all {
		s.Stop()
	}
}
