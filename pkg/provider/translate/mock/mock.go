// Package mock provides a mock implementation of translate.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate"
)

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Provider is a scriptable translate.Provider. Set Result/Err for a fixed
// response, or TranslateFunc for per-call behaviour. All recorded calls are
// available through Calls.
type Provider struct {
	mu    sync.Mutex
	calls []translate.Request

	// Result is returned from Translate when TranslateFunc is nil.
	Result string

	// Err is returned from Translate when TranslateFunc is nil.
	Err error

	// TranslateFunc, when set, overrides Result/Err entirely.
	TranslateFunc func(ctx context.Context, req translate.Request) (string, error)
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.TranslateFunc != nil {
		return p.TranslateFunc(ctx, req)
	}
	return p.Result, p.Err
}

// Calls returns a copy of all requests seen so far.
func (p *Provider) Calls() []translate.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]translate.Request, len(p.calls))
	copy(out, p.calls)
	return out
}
