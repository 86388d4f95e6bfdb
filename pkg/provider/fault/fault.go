// Package fault defines the normalized error taxonomy shared by all provider
// packages.
//
// External speech and translation services fail in provider-specific ways
// (HTTP status codes, SDK error types, closed connections). The gateway maps
// every failure onto one of four [Kind] values so that pipeline code can make
// retry/fallback decisions without knowing which provider produced the error.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a provider failure.
type Kind string

const (
	// KindTransient covers timeouts, connection resets, 5xx responses and any
	// failure that a different provider (or a later retry) might not hit.
	KindTransient Kind = "transient"

	// KindQuota covers rate limiting and exhausted usage quotas (HTTP 429).
	KindQuota Kind = "quota-exceeded"

	// KindAuth covers invalid or expired credentials (HTTP 401/403).
	KindAuth Kind = "auth"

	// KindInvalidInput covers requests the provider rejected as malformed
	// (HTTP 400/413/415): unsupported audio, empty text, unknown language.
	KindInvalidInput Kind = "invalid-input"
)

// Error is a provider failure annotated with its [Kind] and the name of the
// provider that produced it. It wraps the underlying error for errors.Is/As.
type Error struct {
	Provider string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified provider error.
func New(provider string, kind Kind, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// Wrap attaches provider name and kind to err. Returns nil for a nil err; an
// already-classified error passes through unchanged so the innermost
// classification wins.
func Wrap(provider string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the [Kind] from err. Unclassified errors report
// [KindTransient]: when we cannot tell what went wrong, trying the fallback
// is the behaviour that keeps the session alive.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}

// Retryable reports whether a failure of this kind should be retried against
// a fallback provider. Auth and invalid-input failures will fail identically
// everywhere, so only transient and quota failures are worth a second call.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindQuota:
		return true
	}
	return false
}

// FromStatus maps an HTTP response status code to a [Kind]. Used by the
// hand-rolled REST provider clients.
func FromStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindQuota
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code >= 400 && code < 500:
		return KindInvalidInput
	default:
		return KindTransient
	}
}
