// Package googletx provides a translation provider backed by the Google
// Cloud Translation v2 REST API.
//
// v2 is the simple key-authenticated endpoint: one POST per utterance, no
// glossaries or model selection. That matches the engine's needs — short
// spoken utterances translated one at a time at conversational latency.
package googletx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate"
)

// providerName labels errors and metrics from this provider.
const providerName = "googletx"

const (
	defaultBaseURL = "https://translation.googleapis.com"
	defaultTimeout = 15 * time.Second
)

// Compile-time assertion that Provider implements translate.Provider.
var _ translate.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Primarily used in tests to point
// at a local mock server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// Provider implements translate.Provider against the Translation v2 API.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a new Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("googletx: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// translateResponse mirrors the v2 response envelope.
type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate sends one utterance to POST /language/translate/v2 and returns
// the translated text.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	if req.Text == "" {
		return "", fault.New(providerName, fault.KindInvalidInput, errors.New("empty text"))
	}
	if req.Target == "" {
		return "", fault.New(providerName, fault.KindInvalidInput, errors.New("target language is required"))
	}

	form := url.Values{
		"q":      {req.Text},
		"target": {req.Target},
		"format": {"text"},
	}
	if req.Source != "" {
		form.Set("source", req.Source)
	}

	endpoint := fmt.Sprintf("%s/language/translate/v2?key=%s", p.baseURL, url.QueryEscape(p.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("googletx: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fault.Wrap(providerName, fault.KindTransient, fmt.Errorf("googletx: http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fault.New(providerName, fault.FromStatus(resp.StatusCode),
			fmt.Errorf("googletx: server returned HTTP %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fault.Wrap(providerName, fault.KindTransient, fmt.Errorf("googletx: read response body: %w", err))
	}

	var out translateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fault.Wrap(providerName, fault.KindTransient, fmt.Errorf("googletx: parse JSON response: %w", err))
	}
	if len(out.Data.Translations) == 0 {
		return "", fault.New(providerName, fault.KindTransient, errors.New("googletx: empty translations array"))
	}

	// The API HTML-escapes some characters even with format=text.
	return html.UnescapeString(out.Data.Translations[0].TranslatedText), nil
}
