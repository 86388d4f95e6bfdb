package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesInnermostClassification(t *testing.T) {
	t.Parallel()

	inner := New("googletx", KindQuota, errors.New("429"))
	outer := Wrap("gateway", KindTransient, fmt.Errorf("translate: %w", inner))

	if got := KindOf(outer); got != KindQuota {
		t.Fatalf("KindOf = %q, want %q", got, KindQuota)
	}
	var fe *Error
	if !errors.As(outer, &fe) {
		t.Fatal("expected *Error in chain")
	}
	if fe.Provider != "googletx" {
		t.Fatalf("provider = %q, want googletx", fe.Provider)
	}
}

func TestWrapNil(t *testing.T) {
	t.Parallel()
	if Wrap("whisper", KindTransient, nil) != nil {
		t.Fatal("Wrap(nil) must return nil")
	}
}

func TestKindOfUnclassified(t *testing.T) {
	t.Parallel()
	if got := KindOf(errors.New("boom")); got != KindTransient {
		t.Fatalf("KindOf(plain error) = %q, want transient", got)
	}
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind Kind
		want bool
	}{
		{KindTransient, true},
		{KindQuota, true},
		{KindAuth, false},
		{KindInvalidInput, false},
	}
	for _, tc := range cases {
		err := New("p", tc.kind, errors.New("x"))
		if got := Retryable(err); got != tc.want {
			t.Errorf("Retryable(%s) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestFromStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]Kind{
		429: KindQuota,
		401: KindAuth,
		403: KindAuth,
		400: KindInvalidInput,
		413: KindInvalidInput,
		500: KindTransient,
		502: KindTransient,
	}
	for code, want := range cases {
		if got := FromStatus(code); got != want {
			t.Errorf("FromStatus(%d) = %q, want %q", code, got, want)
		}
	}
}
