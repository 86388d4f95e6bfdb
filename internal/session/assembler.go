package session

import "time"

// Assembler accumulates raw PCM into the segment that will become the
// next utterance. It is not safe for concurrent use: every method is
// called from the owning session's event loop.
type Assembler struct {
	buf        []byte
	sampleRate int

	flushThreshold time.Duration
	maxSegment     time.Duration

	inFlight bool
}

// NewAssembler builds an assembler for 16-bit mono PCM at sampleRate.
func NewAssembler(sampleRate int, flushThreshold, maxSegment time.Duration) *Assembler {
	return &Assembler{
		sampleRate:     sampleRate,
		flushThreshold: flushThreshold,
		maxSegment:     maxSegment,
	}
}

// Append adds a chunk of PCM to the pending segment.
func (a *Assembler) Append(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	a.buf = append(a.buf, pcm...)
}

// Duration reports the buffered audio length. Two bytes per sample,
// single channel.
func (a *Assembler) Duration() time.Duration {
	if a.sampleRate <= 0 {
		return 0
	}
	samples := len(a.buf) / 2
	return time.Duration(samples) * time.Second / time.Duration(a.sampleRate)
}

// ShouldFlush reports whether the pending segment is ready to dispatch:
// enough audio has accumulated and no segment is already being processed.
// The hard cap forces a flush regardless of the threshold so a speaker who
// never pauses still produces bounded segments.
func (a *Assembler) ShouldFlush() bool {
	if a.inFlight {
		return false
	}
	d := a.Duration()
	if d >= a.maxSegment {
		return true
	}
	return d >= a.flushThreshold
}

// HasAudio reports whether any audio is pending.
func (a *Assembler) HasAudio() bool {
	return len(a.buf) > 0
}

// TakeSegment swaps out the pending buffer and marks a segment in flight.
// Audio appended afterwards accumulates toward the next segment.
func (a *Assembler) TakeSegment() []byte {
	seg := a.buf
	a.buf = nil
	a.inFlight = true
	return seg
}

// SegmentDone clears the in-flight marker once the pipeline has finished
// with the last segment.
func (a *Assembler) SegmentDone() {
	a.inFlight = false
}

// InFlight reports whether a segment is currently being processed.
func (a *Assembler) InFlight() bool {
	return a.inFlight
}

// Reset drops all pending audio and the in-flight marker.
func (a *Assembler) Reset() {
	a.buf = nil
	a.inFlight = false
}
