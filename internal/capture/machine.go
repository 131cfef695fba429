package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/persona"
)

// Machine is the speech capture state machine. All transitions are
// serialized; listeners are invoked after the transition is committed and
// outside the lock. State listeners must not call back into the machine.
type Machine struct {
	recognizer Recognizer
	logger     zerolog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	language   string
	session    RecognitionSession
	transcript Transcript

	// notifyMu orders state notifications; notified is the last state
	// delivered to onState
	notifyMu sync.Mutex
	notified State

	onState      func(State)
	onTranscript func(string)
	onError      func(*RecognitionError)
}

// NewMachine creates an idle machine. A nil recognizer makes every Start fail
// with ErrCapabilityUnavailable.
func NewMachine(recognizer Recognizer) *Machine {
	return &Machine{
		recognizer: recognizer,
		logger:     observability.Component("capture"),
	}
}

// OnState registers a listener for committed state changes
func (m *Machine) OnState(fn func(State)) *Machine {
	m.onState = fn
	return m
}

// OnTranscript registers a listener receiving the whole buffer after each
// append
func (m *Machine) OnTranscript(fn func(string)) *Machine {
	m.onTranscript = fn
	return m
}

// OnError registers a listener for recognition errors
func (m *Machine) OnError(fn func(*RecognitionError)) *Machine {
	m.onError = fn
	return m
}

// Start begins a recognition session in the persona's recognition language.
// Starting while already listening does nothing.
func (m *Machine) Start(ctx context.Context, p persona.Persona) error {
	if m.recognizer == nil {
		return ErrCapabilityUnavailable
	}

	m.mu.Lock()
	if m.state == Listening {
		m.mu.Unlock()
		return nil
	}
	m.generation++
	gen := m.generation
	lang := p.RecognitionLanguage()
	m.state = Listening
	m.language = lang
	m.session = nil
	m.mu.Unlock()
	observability.RecordCaptureStart()

	session, err := m.recognizer.Open(ctx, lang, &sink{machine: m, generation: gen})

	m.mu.Lock()
	live := m.generation == gen && m.state == Listening
	if err != nil {
		if live {
			m.state = Idle
			m.language = ""
		}
		m.mu.Unlock()
		if live {
			observability.RecordCaptureEnd()
		}
		if errors.Is(err, ErrCapabilityUnavailable) {
			return ErrCapabilityUnavailable
		}
		return fmt.Errorf("start recognition: %w", err)
	}
	if !live {
		// Stopped or failed while the engine was connecting.
		m.mu.Unlock()
		session.Stop()
		return nil
	}
	m.session = session
	m.mu.Unlock()

	m.logger.Info().Uint64("session", gen).Str("language", lang).Msg("Capture started")
	m.publishState()
	return nil
}

// Stop ends the live session. Stopping while idle does nothing.
func (m *Machine) Stop() {
	m.mu.Lock()
	if m.state == Idle {
		m.mu.Unlock()
		return
	}
	session, gen := m.toIdle()
	m.mu.Unlock()

	m.finish(session, gen, "stopped")
}

// Handle applies one engine event. Events of a session that is no longer
// live are dropped. An ErrorEvent is returned as *RecognitionError.
func (m *Machine) Handle(ev Event) error {
	m.mu.Lock()
	if m.state != Listening || ev.session() != m.generation {
		m.mu.Unlock()
		m.logger.Debug().Uint64("session", ev.session()).Msg("Dropping stale recognition event")
		return nil
	}

	switch e := ev.(type) {
	case ResultBatch:
		appended := false
		for _, h := range e.Hypotheses {
			if !h.Final {
				continue
			}
			m.transcript.Append(h.Text)
			appended = true
		}
		text := m.transcript.String()
		m.mu.Unlock()

		if appended && m.onTranscript != nil {
			m.onTranscript(text)
		}
		return nil

	case ErrorEvent:
		session, gen := m.toIdle()
		m.mu.Unlock()

		recErr := &RecognitionError{Code: e.Code}
		observability.RecordRecognitionError(e.Code)
		m.logger.Warn().Uint64("session", gen).Str("code", e.Code).Msg("Recognition error")
		m.finish(session, gen, "error")
		if m.onError != nil {
			m.onError(recErr)
		}
		return recErr

	case EndEvent:
		session, gen := m.toIdle()
		m.mu.Unlock()

		m.finish(session, gen, "ended")
		return nil

	default:
		m.mu.Unlock()
		return fmt.Errorf("unknown capture event %T", ev)
	}
}

// Write forwards captured audio to the live session. Audio is discarded
// while idle.
func (m *Machine) Write(audio []byte) error {
	m.mu.Lock()
	session := m.session
	listening := m.state == Listening
	m.mu.Unlock()

	if !listening || session == nil {
		return nil
	}
	return session.Write(audio)
}

// State returns the current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Language returns the language of the live session, empty while idle
func (m *Machine) Language() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

// Transcript returns the concatenated finalized segments
func (m *Machine) Transcript() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript.String()
}

// ClearTranscript empties the buffer. It never happens implicitly.
func (m *Machine) ClearTranscript() {
	m.mu.Lock()
	m.transcript.Clear()
	m.mu.Unlock()

	if m.onTranscript != nil {
		m.onTranscript("")
	}
}

// toIdle must be called with mu held
func (m *Machine) toIdle() (RecognitionSession, uint64) {
	session := m.session
	m.state = Idle
	m.language = ""
	m.session = nil
	return session, m.generation
}

func (m *Machine) finish(session RecognitionSession, gen uint64, reason string) {
	if session != nil {
		if err := session.Stop(); err != nil {
			m.logger.Debug().Err(err).Uint64("session", gen).Msg("Failed to stop recognition session")
		}
	}
	observability.RecordCaptureEnd()
	m.logger.Info().Uint64("session", gen).Str("reason", reason).Msg("Capture finished")
	m.publishState()
}

// publishState delivers the committed state, not the state of the caller's
// transition, so a late notification never overwrites a newer one. Repeats
// of the last delivered state are suppressed.
func (m *Machine) publishState() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state == m.notified {
		return
	}
	m.notified = state
	if m.onState != nil {
		m.onState(state)
	}
}

type sink struct {
	machine    *Machine
	generation uint64
}

func (s *sink) Results(hypotheses ...Hypothesis) {
	s.machine.Handle(ResultBatch{Session: s.generation, Hypotheses: hypotheses})
}

func (s *sink) Error(code string) {
	s.machine.Handle(ErrorEvent{Session: s.generation, Code: code})
}

func (s *sink) End() {
	s.machine.Handle(EndEvent{Session: s.generation})
}
