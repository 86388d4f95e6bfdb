package ws

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/session"
)

func TestDecodeFrameStart(t *testing.T) {
	t.Parallel()
	id, ev, err := decodeFrame([]byte(`{
		"type":"start","sessionId":"s1",
		"sourceLang":"en","targetLang":"es",
		"mode":"alternating","sampleRate":8000
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != "s1" {
		t.Fatalf("session id = %q", id)
	}
	start, ok := ev.(session.StartEvent)
	if !ok {
		t.Fatalf("event type = %T", ev)
	}
	if start.Source != "en" || start.Target != "es" || start.Mode != session.ModeAlternating || start.SampleRate != 8000 {
		t.Fatalf("start = %+v", start)
	}
}

func TestDecodeFrameAudio(t *testing.T) {
	t.Parallel()
	pcm := []byte{1, 2, 3, 4}
	raw, _ := json.Marshal(map[string]any{
		"type":        "audio",
		"pcmBase64":   base64.StdEncoding.EncodeToString(pcm),
		"sampleCount": 2,
	})
	_, ev, err := decodeFrame(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	a, ok := ev.(session.AudioEvent)
	if !ok || len(a.PCM) != 4 {
		t.Fatalf("event = %#v", ev)
	}
}

func TestDecodeFrameControls(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want session.Event
	}{
		{`{"type":"vad","event":"begin"}`, session.VADEvent{End: false}},
		{`{"type":"vad","event":"end"}`, session.VADEvent{End: true}},
		{`{"type":"pause"}`, session.PauseEvent{}},
		{`{"type":"resume"}`, session.ResumeEvent{}},
		{`{"type":"stop"}`, session.StopEvent{}},
	}
	for _, tc := range tests {
		_, ev, err := decodeFrame([]byte(tc.raw))
		if err != nil {
			t.Fatalf("decode %s: %v", tc.raw, err)
		}
		if ev != tc.want {
			t.Fatalf("decode %s = %#v, want %#v", tc.raw, ev, tc.want)
		}
	}
}

func TestDecodeFrameRejectsMalformed(t *testing.T) {
	t.Parallel()
	bad := []string{
		`not json at all`,
		`{"type":"teleport"}`,
		`{"type":"start"}`,                                      // missing sessionId
		`{"type":"start","sessionId":"s1","mode":"backwards"}`,  // unknown mode
		`{"type":"vad","event":"sideways"}`,                     // unknown vad event
		`{"type":"audio","pcmBase64":"$$$"}`,                    // invalid base64
		`{"type":"audio","pcmBase64":"AAAA","sampleCount":999}`, // count mismatch
	}
	for _, raw := range bad {
		if _, _, err := decodeFrame([]byte(raw)); err == nil {
			t.Errorf("decodeFrame(%s) accepted malformed frame", raw)
		}
	}
}

func TestEncodeNotifications(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		n    session.Notification
		want map[string]any
	}{
		{
			"status",
			session.StatusNotification{State: session.StateListening, Direction: "en>es"},
			map[string]any{"type": "status", "status": "listening", "direction": "en>es"},
		},
		{
			"partial",
			session.PartialNotification{UtteranceID: "u1", Transcript: "hi"},
			map[string]any{"type": "partial", "utteranceId": "u1", "text": "hi"},
		},
		{
			"final",
			session.FinalNotification{
				UtteranceID: "u1", Transcript: "hi", TranslatedText: "hola",
				DetectedLanguage: "en", TargetLanguage: "es",
			},
			map[string]any{
				"type": "final", "utteranceId": "u1", "transcript": "hi",
				"translation": "hola", "detectedLanguage": "en", "targetLanguage": "es",
			},
		},
		{
			"error",
			session.ErrorNotification{UtteranceID: "u1", Kind: "transient", Message: "upstream down"},
			map[string]any{"type": "error", "kind": "transient", "message": "upstream down"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := encodeNotification(tc.n)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for k, want := range tc.want {
				if got[k] != want {
					t.Errorf("field %q = %v, want %v", k, got[k], want)
				}
			}
		})
	}
}

func TestEncodeFinalCarriesAudio(t *testing.T) {
	t.Parallel()
	data, err := encodeNotification(session.FinalNotification{
		UtteranceID: "u1", Transcript: "hi", TranslatedText: "hola",
		Audio: []byte{9, 9, 9},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got struct {
		AudioBase64 string `json:"audioBase64"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(got.AudioBase64)
	if err != nil || len(decoded) != 3 {
		t.Fatalf("audio round-trip = %v, %v", decoded, err)
	}
}
