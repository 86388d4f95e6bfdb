// Package mock provides a scriptable stt.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/stt"
)

// Provider is a test double for stt.Provider. Configure the result fields or
// TranscribeFunc before use; every call is recorded.
type Provider struct {
	mu    sync.Mutex
	calls []stt.Request

	// TranscribeFunc, when non-nil, handles calls entirely.
	TranscribeFunc func(ctx context.Context, req stt.Request) (stt.Result, error)

	// Result and Err are returned when TranscribeFunc is nil.
	Result stt.Result
	Err    error
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	fn := p.TranscribeFunc
	res, err := p.Result, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return res, err
}

// Calls returns a copy of all recorded requests.
func (p *Provider) Calls() []stt.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]stt.Request, len(p.calls))
	copy(out, p.calls)
	return out
}
