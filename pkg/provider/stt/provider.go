// Package stt defines the Provider interface for batch speech-to-text
// backends.
//
// An STT provider wraps a transcription service (a local whisper.cpp server,
// the OpenAI audio API) behind a single call/response method: the caller
// hands over one complete WAV-contained utterance and receives its
// transcript. Segmentation happens upstream in the session engine, so
// providers never see a live audio stream.
//
// Implementations must be safe for concurrent use; one provider instance
// serves every active session.
package stt

import "context"

// Request describes one transcription call.
type Request struct {
	// WAV is the complete utterance as a RIFF/WAV container
	// (16-bit LE mono PCM).
	WAV []byte

	// LanguageHint is the ISO-639-1 code the session was configured with
	// ("en", "de"). Empty means the provider should auto-detect. The hint is
	// advisory: downstream language detection runs on the transcript either
	// way.
	LanguageHint string

	// SampleRate is the PCM sample rate declared in the container, in Hz.
	SampleRate int
}

// Result is a completed transcription.
type Result struct {
	// Text is the transcribed speech. May be empty when the segment held no
	// intelligible speech; that is not an error.
	Text string

	// Language is the language the provider believes it heard, when the
	// provider reports one. Empty otherwise.
	Language string
}

// Provider is the abstraction over any batch STT backend.
//
// Transcribe blocks until the provider responds or ctx is cancelled. Errors
// are classified via pkg/provider/fault by the gateway; implementations
// should wrap their failures with fault kinds where they can tell them apart.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
}
