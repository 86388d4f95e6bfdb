package resilience

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// FallbackConfig configures a [FallbackGroup].
type FallbackConfig struct {
	// CircuitBreaker is the per-entry breaker configuration. The Name field is
	// overwritten with each entry's name.
	CircuitBreaker CircuitBreakerConfig

	// ShouldFallback decides whether an error from one entry justifies trying
	// the next. Defaults to [fault.Retryable]: transient and quota failures
	// move on to the fallback, auth and invalid-input failures surface
	// immediately because every provider would reject them the same way.
	ShouldFallback func(error) bool
}

// fallbackEntry pairs a provider value with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup wraps a primary and zero or more fallback instances of the same
// provider type. When the primary fails retryably (or its circuit breaker is
// open), the next healthy fallback is tried in registration order.
//
// FallbackGroup is safe for concurrent use after all fallbacks are registered.
type FallbackGroup[T any] struct {
	entries        []fallbackEntry[T]
	cfg            FallbackConfig
	shouldFallback func(error) bool
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
// Additional fallbacks are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	sf := cfg.ShouldFallback
	if sf == nil {
		sf = fault.Retryable
	}
	cbCfg := cfg.CircuitBreaker
	cbCfg.Name = primaryName
	return &FallbackGroup[T]{
		entries: []fallbackEntry[T]{
			{
				name:    primaryName,
				value:   primary,
				breaker: NewCircuitBreaker(cbCfg),
			},
		},
		cfg:            cfg,
		shouldFallback: sf,
	}
}

// AddFallback appends a fallback provider. Fallbacks are tried in the order they
// are added, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of registered providers including the primary.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// Execute tries fn against each entry in order until one succeeds. Entries with
// an open circuit breaker are skipped; a non-retryable failure is returned
// as-is without consulting further entries. Returns [ErrAllFailed] wrapped with
// the last error if every entry fails retryably.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each entry in the group until one
// succeeds, returning the result value. This is a package-level function
// because Go does not support method-level type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
			continue
		}
		if !fg.shouldFallback(err) {
			slog.Warn("provider failed non-retryably",
				"provider", entry.name, "kind", fault.KindOf(err), "error", err)
			return zero, err
		}
		slog.Warn("provider failed, trying next",
			"provider", entry.name, "kind", fault.KindOf(err), "error", err)
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
