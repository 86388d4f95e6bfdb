package googletx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/translate"
)

// newTestServer returns a server replying with a single translation and the
// form values it received.
func newTestServer(t *testing.T, translated, detected string) (*httptest.Server, *map[string]string) {
	t.Helper()
	seen := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/language/translate/v2" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		seen["key"] = r.URL.Query().Get("key")
		for k := range r.PostForm {
			seen[k] = r.PostForm.Get(k)
		}
		resp := map[string]any{
			"data": map[string]any{
				"translations": []map[string]string{
					{"translatedText": translated, "detectedSourceLanguage": detected},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

// TestNew_EmptyAPIKey checks that a missing API key is rejected.
func TestNew_EmptyAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

// TestTranslate_Success checks request shape and response parsing.
func TestTranslate_Success(t *testing.T) {
	srv, seen := newTestServer(t, "hola mundo", "en")
	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := p.Translate(context.Background(), translate.Request{
		Text:   "hello world",
		Source: "en",
		Target: "es",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hola mundo" {
		t.Errorf("expected %q, got %q", "hola mundo", got)
	}

	form := *seen
	if form["key"] != "test-key" {
		t.Errorf("expected key=test-key, got %q", form["key"])
	}
	if form["q"] != "hello world" {
		t.Errorf("expected q=%q, got %q", "hello world", form["q"])
	}
	if form["source"] != "en" || form["target"] != "es" {
		t.Errorf("expected source=en target=es, got source=%q target=%q", form["source"], form["target"])
	}
	if form["format"] != "text" {
		t.Errorf("expected format=text, got %q", form["format"])
	}
}

// TestTranslate_OmitsSourceWhenUnknown checks that an empty source is not sent,
// letting the API auto-detect.
func TestTranslate_OmitsSourceWhenUnknown(t *testing.T) {
	srv, seen := newTestServer(t, "bonjour", "en")
	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Translate(context.Background(), translate.Request{Text: "hello", Target: "fr"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := (*seen)["source"]; ok {
		t.Error("expected source field to be omitted")
	}
}

// TestTranslate_UnescapesHTMLEntities checks that escaped entities in the
// response are decoded.
func TestTranslate_UnescapesHTMLEntities(t *testing.T) {
	srv, _ := newTestServer(t, "it&#39;s here", "en")
	p, err := New("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := p.Translate(context.Background(), translate.Request{Text: "hi", Target: "es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "it's here" {
		t.Errorf("expected unescaped text, got %q", got)
	}
}

// TestTranslate_ErrorKinds checks HTTP status mapping onto fault kinds.
func TestTranslate_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   fault.Kind
	}{
		{"rate limited", http.StatusTooManyRequests, fault.KindQuota},
		{"bad key", http.StatusForbidden, fault.KindAuth},
		{"bad request", http.StatusBadRequest, fault.KindInvalidInput},
		{"server error", http.StatusInternalServerError, fault.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(srv.Close)

			p, err := New("test-key", WithBaseURL(srv.URL))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, err = p.Translate(context.Background(), translate.Request{Text: "hi", Target: "es"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := fault.KindOf(err); got != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, got)
			}
		})
	}
}

// TestTranslate_EmptyInput checks client-side validation.
func TestTranslate_EmptyInput(t *testing.T) {
	t.Parallel()
	p, err := New("test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Translate(context.Background(), translate.Request{Target: "es"}); fault.KindOf(err) != fault.KindInvalidInput {
		t.Errorf("empty text: expected invalid-input, got %v", err)
	}
	if _, err := p.Translate(context.Background(), translate.Request{Text: "hi"}); fault.KindOf(err) != fault.KindInvalidInput {
		t.Errorf("missing target: expected invalid-input, got %v", err)
	}
}
