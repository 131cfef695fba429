package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCapabilityUnavailable is returned by Start when no recognition engine is
// available on this host
var ErrCapabilityUnavailable = errors.New("speech recognition is not available")

// RecognitionError is an error reported by the engine for a live session
type RecognitionError struct {
	Code string
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition error: %s", e.Code)
}

// State of the capture machine
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	default:
		return "unknown"
	}
}

// Hypothesis is one recognition result. Only final hypotheses reach the
// transcript.
type Hypothesis struct {
	Text  string
	Final bool
}

// Event is a recognition engine notification. The set is closed:
// ResultBatch, ErrorEvent and EndEvent.
type Event interface {
	session() uint64
}

// ResultBatch carries the hypotheses of one engine callback, in order
type ResultBatch struct {
	Session    uint64
	Hypotheses []Hypothesis
}

// ErrorEvent reports an engine error. The session is over once it is handled.
type ErrorEvent struct {
	Session uint64
	Code    string
}

// EndEvent reports that the engine closed the session on its own
type EndEvent struct {
	Session uint64
}

func (e ResultBatch) session() uint64 { return e.Session }
func (e ErrorEvent) session() uint64  { return e.Session }
func (e EndEvent) session() uint64    { return e.Session }

// Sink receives events for exactly one session. Recognizers call it from any
// goroutine, but never synchronously from within Open.
type Sink interface {
	Results(hypotheses ...Hypothesis)
	Error(code string)
	End()
}

// Recognizer opens recognition sessions on a speech engine
type Recognizer interface {
	// Open starts a session for a BCP-47 language tag such as "vi-VN".
	// Implementations return ErrCapabilityUnavailable when the engine cannot
	// be used at all.
	Open(ctx context.Context, language string, sink Sink) (RecognitionSession, error)
}

// RecognitionSession is a live engine session
type RecognitionSession interface {
	// Write feeds captured audio to the engine
	Write(audio []byte) error

	// Stop ends the session. It may be called more than once.
	Stop() error
}

// Transcript is the append-only buffer of finalized segments
type Transcript struct {
	segments []string
}

// Append adds a finalized segment
func (t *Transcript) Append(segment string) {
	t.segments = append(t.segments, segment)
}

// String concatenates all segments in arrival order
func (t *Transcript) String() string {
	return strings.Join(t.segments, "")
}

// Len returns the number of segments
func (t *Transcript) Len() int {
	return len(t.segments)
}

// Clear empties the buffer
func (t *Transcript) Clear() {
	t.segments = nil
}
