// Package ws bridges a WebSocket connection to a session: it decodes the
// JSON protocol frames into session events and streams session
// notifications back to the client.
package ws

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/session"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/audio"
)

// inboundFrame is the envelope for every client frame. Type selects
// which of the remaining fields apply.
type inboundFrame struct {
	Type string `json:"type"`

	// start
	SessionID  string `json:"sessionId,omitempty"`
	SourceLang string `json:"sourceLang,omitempty"`
	TargetLang string `json:"targetLang,omitempty"`
	Mode       string `json:"mode,omitempty"`
	SampleRate int    `json:"sampleRate,omitempty"`

	// audio
	PCMBase64   string `json:"pcmBase64,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`

	// vad
	Event string `json:"event,omitempty"`
}

type statusFrame struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Direction string `json:"direction,omitempty"`
}

type partialFrame struct {
	Type        string `json:"type"`
	UtteranceID string `json:"utteranceId,omitempty"`
	Text        string `json:"text"`
}

type finalFrame struct {
	Type             string `json:"type"`
	UtteranceID      string `json:"utteranceId,omitempty"`
	Transcript       string `json:"transcript"`
	Translation      string `json:"translation"`
	DetectedLanguage string `json:"detectedLanguage"`
	TargetLanguage   string `json:"targetLanguage,omitempty"`
	UsedFallback     bool   `json:"usedFallback,omitempty"`
	AudioBase64      string `json:"audioBase64,omitempty"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// decodeFrame parses one client frame. For start frames the session id
// is returned alongside the event; every other frame targets the
// connection's current session.
func decodeFrame(data []byte) (sessionID string, ev session.Event, err error) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return "", nil, fmt.Errorf("invalid json: %w", err)
	}

	switch f.Type {
	case "start":
		if f.SessionID == "" {
			return "", nil, fmt.Errorf("start frame missing sessionId")
		}
		switch f.Mode {
		case "", string(session.ModeFixed), string(session.ModeAlternating):
		default:
			return "", nil, fmt.Errorf("unknown mode %q", f.Mode)
		}
		return f.SessionID, session.StartEvent{
			Source:     f.SourceLang,
			Target:     f.TargetLang,
			Mode:       session.Mode(f.Mode),
			SampleRate: f.SampleRate,
		}, nil

	case "audio":
		pcm, err := base64.StdEncoding.DecodeString(f.PCMBase64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid pcm base64: %w", err)
		}
		if f.SampleCount > 0 {
			if err := audio.ValidatePCM(pcm, f.SampleCount); err != nil {
				return "", nil, err
			}
		}
		return "", session.AudioEvent{PCM: pcm}, nil

	case "vad":
		switch f.Event {
		case "begin":
			return "", session.VADEvent{End: false}, nil
		case "end":
			return "", session.VADEvent{End: true}, nil
		default:
			return "", nil, fmt.Errorf("unknown vad event %q", f.Event)
		}

	case "pause":
		return "", session.PauseEvent{}, nil
	case "resume":
		return "", session.ResumeEvent{}, nil
	case "stop":
		return "", session.StopEvent{}, nil

	default:
		return "", nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}

// encodeNotification renders an outbound frame for the client.
func encodeNotification(n session.Notification) ([]byte, error) {
	switch n := n.(type) {
	case session.StatusNotification:
		return json.Marshal(statusFrame{
			Type:      "status",
			Status:    string(n.State),
			Direction: n.Direction,
		})
	case session.PartialNotification:
		return json.Marshal(partialFrame{
			Type:        "partial",
			UtteranceID: n.UtteranceID,
			Text:        n.Transcript,
		})
	case session.FinalNotification:
		f := finalFrame{
			Type:             "final",
			UtteranceID:      n.UtteranceID,
			Transcript:       n.Transcript,
			Translation:      n.TranslatedText,
			DetectedLanguage: n.DetectedLanguage,
			TargetLanguage:   n.TargetLanguage,
			UsedFallback:     n.UsedFallback,
		}
		if len(n.Audio) > 0 {
			f.AudioBase64 = base64.StdEncoding.EncodeToString(n.Audio)
		}
		return json.Marshal(f)
	case session.ErrorNotification:
		return json.Marshal(errorFrame{
			Type:    "error",
			Kind:    n.Kind,
			Message: n.Message,
		})
	default:
		return nil, fmt.Errorf("unsupported notification %T", n)
	}
}
