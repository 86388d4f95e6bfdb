package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/observe"
	"github.com/dawoodellahisheikh/verblizr-backend/pkg/provider/fault"
)

var (
	// ErrSessionStopped is returned by Enqueue after the session ended.
	ErrSessionStopped = errors.New("session stopped")
	// ErrQueueFull is returned by Enqueue when the event queue is at
	// capacity. The event is dropped, not queued.
	ErrQueueFull = errors.New("session event queue full")
)

const (
	defaultFlushThreshold = 1500 * time.Millisecond
	defaultVADGrace       = 100 * time.Millisecond
	defaultMaxSegment     = 30 * time.Second
	defaultSampleRate     = 16000
	defaultQueueLen       = 64
	defaultHousePairA     = "en"
	defaultHousePairB     = "es"

	// Rough speaking rate used to size the playback window.
	playbackWordsPerSecond = 2.5
	minPlayback            = 500 * time.Millisecond
	maxPlayback            = 30 * time.Second
)

// Session is the per-connection interpretation engine. All state lives
// on a single loop goroutine started by Run; external callers interact
// only through Enqueue, Notifications, Stop and LastActive.
type Session struct {
	ID string

	tuning   Tuning
	pipeline *Pipeline
	asm      *Assembler
	log      *slog.Logger
	metrics  *observe.Metrics

	events        chan Event
	results       chan Result
	notifications chan Notification

	closing  chan struct{} // Stop requested
	done     chan struct{} // loop exited
	stopOnce sync.Once
	segWG    sync.WaitGroup

	lastActive atomic.Int64

	// Everything below is owned by the loop goroutine.
	state          State
	source, target string
	mode           Mode
	synthesize     bool
	pendingVADEnd  bool
	graceTimer     *time.Timer
	playTimer      *time.Timer
	cancelSegment  context.CancelFunc
}

// NewSession builds a session around the given pipeline. Zero-value
// tuning fields get defaults.
func NewSession(id string, pl *Pipeline, tuning Tuning) *Session {
	if tuning.FlushThreshold <= 0 {
		tuning.FlushThreshold = defaultFlushThreshold
	}
	if tuning.VADGrace <= 0 {
		tuning.VADGrace = defaultVADGrace
	}
	if tuning.MaxSegment <= 0 {
		tuning.MaxSegment = defaultMaxSegment
	}
	if tuning.SampleRate <= 0 {
		tuning.SampleRate = defaultSampleRate
	}
	if tuning.QueueLen <= 0 {
		tuning.QueueLen = defaultQueueLen
	}
	if tuning.HousePairA == "" || tuning.HousePairB == "" {
		tuning.HousePairA = defaultHousePairA
		tuning.HousePairB = defaultHousePairB
	}

	s := &Session{
		ID:            id,
		tuning:        tuning,
		pipeline:      pl,
		asm:           NewAssembler(tuning.SampleRate, tuning.FlushThreshold, tuning.MaxSegment),
		log:           slog.Default().With("session_id", id),
		metrics:       observe.DefaultMetrics(),
		events:        make(chan Event, tuning.QueueLen),
		results:       make(chan Result, 1),
		notifications: make(chan Notification, tuning.QueueLen),
		closing:       make(chan struct{}),
		done:          make(chan struct{}),
		state:         StateIdle,
	}
	s.touch()
	return s
}

// Notifications returns the stream of outputs for the client. It is
// closed after the session enters the stopped state.
func (s *Session) Notifications() <-chan Notification { return s.notifications }

// State is read by tests and diagnostics through notifications; the
// loop goroutine owns the field itself.

// Enqueue hands a client event to the session loop without blocking.
// Events arriving faster than the loop drains them are dropped.
func (s *Session) Enqueue(ev Event) error {
	select {
	case <-s.done:
		return ErrSessionStopped
	default:
	}
	select {
	case s.events <- ev:
		s.touch()
		return nil
	case <-s.done:
		return ErrSessionStopped
	default:
		s.metrics.RecordDroppedEvent(context.Background(), "queue_full")
		s.log.Warn("event dropped, queue full")
		return ErrQueueFull
	}
}

// Stop requests termination. Safe to call multiple times and from any
// goroutine. The loop discards any in-flight pipeline result, cleans up
// and closes the notification channel.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.closing) })
}

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// LastActive reports when the session last received a client event.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixNano()) }

// Run executes the event loop until Stop is called, a stop event
// arrives or ctx is cancelled. It must be called exactly once.
func (s *Session) Run(ctx context.Context) {
	s.metrics.ActiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveSessions.Add(context.Background(), -1)
	defer s.terminate()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			return
		case ev := <-s.events:
			if _, ok := ev.(StopEvent); ok {
				return
			}
			s.handleEvent(ctx, ev)
		case res := <-s.results:
			s.handleResult(ctx, res)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case StartEvent:
		if s.state != StateIdle {
			s.log.Warn("start ignored, session already running", "state", s.state)
			return
		}
		s.source, s.target, s.mode = e.Source, e.Target, e.Mode
		if s.mode == "" {
			s.mode = ModeFixed
		}
		if e.SampleRate > 0 && e.SampleRate != s.tuning.SampleRate {
			s.tuning.SampleRate = e.SampleRate
			s.asm = NewAssembler(e.SampleRate, s.tuning.FlushThreshold, s.tuning.MaxSegment)
		}
		s.synthesize = s.pipeline.gw.HasTTS()
		s.setState(StateListening)

	case AudioEvent:
		switch s.state {
		case StateListening, StateTranslating, StatePlaying:
			s.asm.Append(e.PCM)
			s.maybeFlush(ctx, false)
		case StatePaused:
			s.log.Debug("audio dropped while paused", "bytes", len(e.PCM))
		default:
			s.log.Debug("audio ignored", "state", s.state)
		}

	case VADEvent:
		if e.End {
			switch {
			case s.state == StateListening && !s.asm.InFlight():
				if s.asm.HasAudio() {
					s.armGraceTimer()
				}
			case s.state != StateIdle:
				// A segment is in flight or the session is paused or
				// playing. Remember the boundary so the audio buffered
				// behind it still flushes once the session is back to
				// listening, even below the duration threshold.
				s.pendingVADEnd = true
			}
		} else {
			s.pendingVADEnd = false
			s.stopGraceTimer()
		}

	case flushEvent:
		if s.state == StateListening {
			s.maybeFlush(ctx, true)
		}

	case PauseEvent:
		switch s.state {
		case StateListening, StateTranslating, StatePlaying:
			s.stopGraceTimer()
			s.stopPlayTimer()
			s.setState(StatePaused)
		default:
			s.log.Warn("pause ignored", "state", s.state)
		}

	case ResumeEvent:
		if s.state != StatePaused {
			s.log.Warn("resume ignored", "state", s.state)
			return
		}
		s.resumeListening(ctx)

	case playbackDoneEvent:
		if s.state == StatePlaying {
			s.resumeListening(ctx)
		}

	default:
		s.log.Warn("unknown event ignored")
	}
}

// maybeFlush dispatches the pending segment to the pipeline when the
// assembler says it is ready, or unconditionally when force is set.
// Only one segment is ever in flight per session.
func (s *Session) maybeFlush(ctx context.Context, force bool) {
	if s.state != StateListening && s.state != StateTranslating {
		return
	}
	if s.asm.InFlight() || !s.asm.HasAudio() {
		return
	}
	if !force && !s.asm.ShouldFlush() {
		return
	}
	s.stopGraceTimer()

	seg := s.asm.TakeSegment()
	job := Job{
		UtteranceID: uuid.NewString(),
		PCM:         seg,
		SampleRate:  s.tuning.SampleRate,
		Source:      s.source,
		Target:      s.target,
		Mode:        s.mode,
		HousePairA:  s.tuning.HousePairA,
		HousePairB:  s.tuning.HousePairB,
		Synthesize:  s.synthesize,
	}
	s.setState(StateTranslating)

	segCtx, cancel := context.WithCancel(ctx)
	s.cancelSegment = cancel
	s.segWG.Add(1)
	go func() {
		defer s.segWG.Done()
		res := s.pipeline.Run(segCtx, job, func(n PartialNotification) {
			s.notify(n)
		})
		select {
		case s.results <- res:
		case <-s.done:
		}
	}()
}

func (s *Session) handleResult(ctx context.Context, res Result) {
	s.asm.SegmentDone()
	if s.cancelSegment != nil {
		s.cancelSegment()
		s.cancelSegment = nil
	}
	s.touch()

	switch {
	case res.Err != nil:
		s.log.Warn("utterance failed",
			"utterance_id", res.UtteranceID,
			"kind", fault.KindOf(res.Err), "error", res.Err)
		s.notify(ErrorNotification{
			UtteranceID: res.UtteranceID,
			Kind:        string(fault.KindOf(res.Err)),
			Message:     res.Err.Error(),
		})
		if s.state != StatePaused {
			s.resumeListening(ctx)
		}

	case res.Empty:
		// Segment held no speech. No output for the client.
		if s.state != StatePaused {
			s.resumeListening(ctx)
		}

	default:
		s.notify(FinalNotification{
			UtteranceID:      res.UtteranceID,
			Transcript:       res.Transcript,
			DetectedLanguage: res.DetectedLanguage,
			TranslatedText:   res.TranslatedText,
			TargetLanguage:   res.TargetLanguage,
			UsedFallback:     res.UsedFallback,
			Audio:            res.Audio,
		})
		// A session paused mid-segment still receives the result but
		// skips the playback window; resume takes it back to listening.
		if s.state != StatePaused {
			s.setState(StatePlaying)
			s.armPlayTimer(playbackDuration(res.TranslatedText))
		}
	}
}

// resumeListening returns the session to listening and flushes whatever
// the in-flight window left behind. A vad end marker recorded while no
// flush could be dispatched forces the flush even below the duration
// threshold.
func (s *Session) resumeListening(ctx context.Context) {
	s.setState(StateListening)
	force := s.pendingVADEnd
	s.pendingVADEnd = false
	s.maybeFlush(ctx, force)
}

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.notify(StatusNotification{State: st, Direction: s.direction()})
}

// direction renders the configured language pairing for status messages.
// Empty when either side is still auto-detected.
func (s *Session) direction() string {
	if s.source == "" || s.source == "auto" || s.target == "" || s.target == "auto" {
		return ""
	}
	return s.source + ">" + s.target
}

// notify delivers a notification to the client stream. Blocks until the
// write side drains it or the session ends; called from the loop and
// from pipeline goroutines.
func (s *Session) notify(n Notification) {
	select {
	case s.notifications <- n:
	case <-s.done:
	}
}

func (s *Session) armGraceTimer() {
	s.stopGraceTimer()
	s.graceTimer = time.AfterFunc(s.tuning.VADGrace, func() {
		s.enqueueInternal(flushEvent{})
	})
}

func (s *Session) stopGraceTimer() {
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

func (s *Session) armPlayTimer(d time.Duration) {
	s.stopPlayTimer()
	s.playTimer = time.AfterFunc(d, func() {
		s.enqueueInternal(playbackDoneEvent{})
	})
}

func (s *Session) stopPlayTimer() {
	if s.playTimer != nil {
		s.playTimer.Stop()
		s.playTimer = nil
	}
}

// enqueueInternal posts a timer-originated event. Unlike Enqueue it
// blocks rather than drops, so internal transitions are never lost.
func (s *Session) enqueueInternal(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// terminate runs on loop exit. Any in-flight pipeline invocation is
// cancelled and its result discarded; scratch cleanup happens inside
// the pipeline's own deferred removal.
func (s *Session) terminate() {
	s.stopGraceTimer()
	s.stopPlayTimer()
	if s.cancelSegment != nil {
		s.cancelSegment()
		s.cancelSegment = nil
	}
	s.asm.Reset()

	// Unblock any in-flight pipeline goroutine, then wait for it so
	// nothing can send on the notification channel after it closes.
	close(s.done)
	s.segWG.Wait()

	if s.state != StateStopped {
		s.state = StateStopped
		select {
		case s.notifications <- StatusNotification{State: StateStopped}:
		default:
		}
	}
	close(s.notifications)
	s.log.Info("session stopped")
}

// playbackDuration estimates how long the client needs to play or read
// the translated text.
func playbackDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / playbackWordsPerSecond * float64(time.Second))
	if d < minPlayback {
		return minPlayback
	}
	if d > maxPlayback {
		return maxPlayback
	}
	return d
}
