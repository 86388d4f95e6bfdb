// Package mock provides a mock implementation of tts.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/tts"
)

// Compile-time assertion that Provider implements tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Provider is a scriptable tts.Provider. Set Result/Err for a fixed response,
// or SynthesizeFunc for per-call behaviour.
type Provider struct {
	mu    sync.Mutex
	calls []tts.Request

	// Result is returned from Synthesize when SynthesizeFunc is nil.
	Result tts.Result

	// Err is returned from Synthesize when SynthesizeFunc is nil.
	Err error

	// SynthesizeFunc, when set, overrides Result/Err entirely.
	SynthesizeFunc func(ctx context.Context, req tts.Request) (tts.Result, error)
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (tts.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.SynthesizeFunc != nil {
		return p.SynthesizeFunc(ctx, req)
	}
	return p.Result, p.Err
}

// Calls returns a copy of all requests seen so far.
func (p *Provider) Calls() []tts.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]tts.Request, len(p.calls))
	copy(out, p.calls)
	return out
}
