// Package session implements the per-connection interpretation engine:
// a state machine that consumes client events, assembles audio into
// utterance segments and runs each segment through the provider gateway.
package session

import "time"

// State identifies where a session is in its lifecycle. Transitions are
// driven exclusively by the session's event loop goroutine.
type State string

const (
	StateIdle        State = "idle"
	StateListening   State = "listening"
	StateTranslating State = "translating"
	StatePlaying     State = "playing"
	StatePaused      State = "paused"
	StateStopped     State = "stopped"
)

// Mode selects how translation direction is resolved per utterance.
type Mode string

const (
	// ModeFixed always translates toward the configured target language.
	ModeFixed Mode = "fixed"
	// ModeAlternating translates toward whichever language of the
	// configured pair the speaker did not use.
	ModeAlternating Mode = "alternating"
)

// Event is a client- or internally-originated input to the session loop.
// All mutation of session state happens while handling one of these on
// the loop goroutine.
type Event interface {
	isEvent()
}

// StartEvent begins a session. Source and Target may be "auto".
// SampleRate, when positive, overrides the session default.
type StartEvent struct {
	Source     string
	Target     string
	Mode       Mode
	SampleRate int
}

// AudioEvent carries a chunk of raw PCM audio (16-bit little-endian mono).
type AudioEvent struct {
	PCM []byte
}

// VADEvent reports a voice-activity transition detected on the client.
// End=true marks the end of speech and arms the grace-period flush.
type VADEvent struct {
	End bool
}

// PauseEvent suspends audio intake. Audio received while paused is dropped.
type PauseEvent struct{}

// ResumeEvent returns a paused session to listening.
type ResumeEvent struct{}

// StopEvent terminally ends the session.
type StopEvent struct{}

// flushEvent is posted internally by the grace timer to force a segment
// flush after speech end.
type flushEvent struct{}

// playbackDoneEvent is posted internally when the estimated playback
// window for the last result has elapsed.
type playbackDoneEvent struct{}

func (StartEvent) isEvent()        {}
func (AudioEvent) isEvent()        {}
func (VADEvent) isEvent()          {}
func (PauseEvent) isEvent()        {}
func (ResumeEvent) isEvent()       {}
func (StopEvent) isEvent()         {}
func (flushEvent) isEvent()        {}
func (playbackDoneEvent) isEvent() {}

// Notification is an output destined for the client. The write side of
// the connection drains these from Session.Notifications.
type Notification interface {
	isNotification()
}

// StatusNotification is emitted on every state entry. Direction is the
// configured translation direction when both languages are known.
type StatusNotification struct {
	State     State
	Direction string
}

// PartialNotification carries the transcript of an utterance before its
// translation completes.
type PartialNotification struct {
	UtteranceID string
	Transcript  string
	Language    string
}

// FinalNotification carries the completed result for one utterance.
type FinalNotification struct {
	UtteranceID      string
	Transcript       string
	DetectedLanguage string
	TranslatedText   string
	TargetLanguage   string
	UsedFallback     bool
	Audio            []byte
}

// ErrorNotification reports a per-utterance failure. The session itself
// keeps running.
type ErrorNotification struct {
	UtteranceID string
	Kind        string
	Message     string
}

func (StatusNotification) isNotification()  {}
func (PartialNotification) isNotification() {}
func (FinalNotification) isNotification()   {}
func (ErrorNotification) isNotification()   {}

// Tuning bundles the per-session timing and buffering knobs. Zero values
// are replaced with defaults by NewSession.
type Tuning struct {
	FlushThreshold time.Duration
	VADGrace       time.Duration
	MaxSegment     time.Duration
	SampleRate     int
	QueueLen       int
	HousePairA     string
	HousePairB     string
}
