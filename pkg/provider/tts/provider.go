// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service and renders one translated
// utterance at a time. Utterances are short (a few seconds of speech), so the
// interface is batch: one request in, one encoded audio clip out.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Request is a single utterance to synthesise.
type Request struct {
	// Text is the translated text to speak. Must be non-empty.
	Text string

	// Voice is the provider-specific voice identifier. Empty selects the
	// provider's default voice.
	Voice string

	// Language is the BCP-47 tag of Text, when known. Providers that do not
	// support a language hint ignore it.
	Language string
}

// Result is a synthesised audio clip.
type Result struct {
	// Audio is the encoded audio payload.
	Audio []byte

	// MIMEType identifies the encoding of Audio (e.g., "audio/mpeg").
	MIMEType string
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders req.Text as speech. Errors are classified with the
	// fault package so callers can make retry decisions.
	Synthesize(ctx context.Context, req Request) (Result, error)
}
