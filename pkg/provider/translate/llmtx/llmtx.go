// Package llmtx provides a translation provider backed by a general-purpose
// language model through github.com/mozilla-ai/any-llm-go.
//
// It is the engine's translation fallback: when the dedicated translation
// service fails, a chat model prompted to translate verbatim keeps the
// session producing results. Any backend any-llm-go supports can serve
// (OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, llama.cpp).
package llmtx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate"
)

// providerName labels errors and metrics from this provider.
const providerName = "llmtx"

// systemPrompt constrains the model to verbatim translation. The output must
// be feedable straight into speech synthesis, so commentary, quoting and
// markup are all forbidden.
const systemPrompt = "You are a translation engine. Translate the user's text from %s to %s. " +
	"Output only the translation, preserving tone and register. " +
	"No commentary, no quotation marks, no markup. " +
	"If the text is already in the target language, output it unchanged."

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Provider implements translate.Provider by prompting a chat model.
type Provider struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Provider backed by the named any-llm-go backend.
//
// backendName is one of: "openai", "anthropic", "gemini", "ollama",
// "mistral", "groq", "llamacpp". model selects the specific model
// (e.g., "gpt-4o-mini"). opts configure credentials and endpoints
// (anyllmlib.WithAPIKey, anyllmlib.WithBaseURL); without an API key option
// the backend falls back to its usual environment variable.
func New(backendName, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if model == "" {
		return nil, errors.New("llmtx: model must not be empty")
	}
	backend, err := createBackend(backendName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llmtx: create %q backend: %w", backendName, err)
	}
	return &Provider{backend: backend, model: model}, nil
}

// createBackend instantiates the underlying any-llm-go provider by name.
func createBackend(name string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: openai, anthropic, gemini, ollama, mistral, groq, llamacpp", name)
	}
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	if req.Text == "" {
		return "", fault.New(providerName, fault.KindInvalidInput, errors.New("empty text"))
	}
	if req.Target == "" {
		return "", fault.New(providerName, fault.KindInvalidInput, errors.New("target language is required"))
	}

	source := req.Source
	if source == "" {
		source = "the detected source language"
	}

	// Greedy decoding: translation should be deterministic.
	temperature := 0.0
	params := anyllmlib.CompletionParams{
		Model:       p.model,
		Temperature: &temperature,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: fmt.Sprintf(systemPrompt, source, req.Target)},
			{Role: anyllmlib.RoleUser, Content: req.Text},
		},
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fault.Wrap(providerName, fault.KindTransient, fmt.Errorf("llmtx: completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", fault.New(providerName, fault.KindTransient, errors.New("llmtx: empty choices in response"))
	}

	out := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if out == "" {
		return "", fault.New(providerName, fault.KindTransient, errors.New("llmtx: model returned empty translation"))
	}
	return out, nil
}
