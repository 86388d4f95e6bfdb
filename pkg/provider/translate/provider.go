// Package translate defines the Provider interface for text translation
// backends.
//
// A translation provider takes one utterance of text plus a source/target
// language pair and returns the translated text. The engine configures a
// primary provider (a dedicated translation service) and a fallback (a
// general-purpose language model prompted to translate); the retry decision
// between the two lives in the pipeline, not here.
//
// Implementations must be safe for concurrent use.
package translate

import "context"

// Request describes one translation call.
type Request struct {
	// Text is the source-language utterance. Never empty: the pipeline
	// short-circuits empty transcripts before translation.
	Text string

	// Source is the ISO-639-1 code of the detected source language. Empty
	// lets the provider detect it.
	Source string

	// Target is the ISO-639-1 code to translate into. Required.
	Target string
}

// Provider is the abstraction over any translation backend.
//
// Translate blocks until the provider responds or ctx is cancelled. Failures
// should carry a pkg/provider/fault classification where the implementation
// can tell failure modes apart.
type Provider interface {
	Translate(ctx context.Context, req Request) (string, error)
}
