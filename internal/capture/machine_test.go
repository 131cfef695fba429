package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/lexiqai/readaloud/internal/persona"
)

type fakeSession struct {
	mu      sync.Mutex
	stopped int
	written [][]byte
}

func (s *fakeSession) Write(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, audio)
	return nil
}

func (s *fakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *fakeSession) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeRecognizer struct {
	err       error
	opened    int
	languages []string
	sinks     []Sink
	sessions  []*fakeSession
}

func (r *fakeRecognizer) Open(ctx context.Context, language string, sink Sink) (RecognitionSession, error) {
	r.opened++
	if r.err != nil {
		return nil, r.err
	}
	session := &fakeSession{}
	r.languages = append(r.languages, language)
	r.sinks = append(r.sinks, sink)
	r.sessions = append(r.sessions, session)
	return session, nil
}

func (r *fakeRecognizer) lastSink() Sink {
	return r.sinks[len(r.sinks)-1]
}

func TestMachine_StartStop(t *testing.T) {
	rec := &fakeRecognizer{}
	var states []State
	m := NewMachine(rec).OnState(func(s State) { states = append(states, s) })

	if m.State() != Idle {
		t.Fatalf("Expected initial state Idle, got %s", m.State())
	}

	if err := m.Start(context.Background(), persona.ViMale); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if m.State() != Listening {
		t.Errorf("Expected Listening, got %s", m.State())
	}
	if m.Language() != "vi-VN" {
		t.Errorf("Expected language vi-VN, got %s", m.Language())
	}

	m.Stop()
	if m.State() != Idle {
		t.Errorf("Expected Idle after Stop, got %s", m.State())
	}
	if rec.sessions[0].stopCount() != 1 {
		t.Errorf("Expected session stopped once, got %d", rec.sessions[0].stopCount())
	}

	if len(states) != 2 || states[0] != Listening || states[1] != Idle {
		t.Errorf("Unexpected state notifications: %v", states)
	}
}

func TestMachine_EndBeforeStartNotified(t *testing.T) {
	rec := &fakeRecognizer{}
	var states []State
	m := NewMachine(rec).OnState(func(s State) { states = append(states, s) })

	// The engine ends the session right after Start commits Listening and
	// before the Listening notification goes out.
	m.logger = zerolog.New(io.Discard).Hook(zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
		if msg == "Capture started" {
			rec.lastSink().End()
		}
	}))

	if err := m.Start(context.Background(), persona.ViMale); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if m.State() != Idle {
		t.Fatalf("Expected Idle after end, got %s", m.State())
	}
	if len(states) > 0 && states[len(states)-1] != Idle {
		t.Errorf("Last notified state must match the machine, got %v", states)
	}
}

func TestMachine_StopWhileIdle(t *testing.T) {
	calls := 0
	m := NewMachine(&fakeRecognizer{}).OnState(func(State) { calls++ })

	m.Stop()

	if m.State() != Idle {
		t.Errorf("Expected Idle, got %s", m.State())
	}
	if calls != 0 {
		t.Errorf("Expected no state notification, got %d", calls)
	}
}

func TestMachine_StartWhileListening(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)

	if err := m.Start(context.Background(), persona.EnMale); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := m.Start(context.Background(), persona.ViMale); err != nil {
		t.Fatalf("second Start() failed: %v", err)
	}

	if rec.opened != 1 {
		t.Errorf("Expected one session opened, got %d", rec.opened)
	}
	if m.Language() != "en-US" {
		t.Errorf("Expected language to stay en-US, got %s", m.Language())
	}
}

func TestMachine_NoRecognizer(t *testing.T) {
	m := NewMachine(nil)

	err := m.Start(context.Background(), persona.ViMale)
	if !errors.Is(err, ErrCapabilityUnavailable) {
		t.Errorf("Expected ErrCapabilityUnavailable, got %v", err)
	}
	if m.State() != Idle {
		t.Errorf("Expected Idle, got %s", m.State())
	}
}

func TestMachine_RecognizerUnavailable(t *testing.T) {
	rec := &fakeRecognizer{err: ErrCapabilityUnavailable}
	m := NewMachine(rec)

	err := m.Start(context.Background(), persona.ViMale)
	if !errors.Is(err, ErrCapabilityUnavailable) {
		t.Errorf("Expected ErrCapabilityUnavailable, got %v", err)
	}
	if m.State() != Idle {
		t.Errorf("Expected Idle, got %s", m.State())
	}
}

func TestMachine_RecognizerOpenFailure(t *testing.T) {
	openErr := errors.New("dial failed")
	m := NewMachine(&fakeRecognizer{err: openErr})

	err := m.Start(context.Background(), persona.ViMale)
	if !errors.Is(err, openErr) {
		t.Errorf("Expected wrapped open error, got %v", err)
	}
	if m.State() != Idle {
		t.Errorf("Expected Idle, got %s", m.State())
	}
}

func TestMachine_FinalResultsAppended(t *testing.T) {
	rec := &fakeRecognizer{}
	var notified []string
	m := NewMachine(rec).OnTranscript(func(text string) { notified = append(notified, text) })

	if err := m.Start(context.Background(), persona.EnFemale); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	sink := rec.lastSink()
	sink.Results(Hypothesis{Text: "hello ", Final: true})
	sink.Results(Hypothesis{Text: "wor", Final: false})
	sink.Results(Hypothesis{Text: "world", Final: true})

	if got := m.Transcript(); got != "hello world" {
		t.Errorf("Expected 'hello world', got '%s'", got)
	}

	if len(notified) != 2 || notified[1] != "hello world" {
		t.Errorf("Expected two transcript notifications ending with the full buffer, got %v", notified)
	}
}

func TestMachine_MixedBatchKeepsOrder(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)
	m.Start(context.Background(), persona.ViMale)

	err := m.Handle(ResultBatch{
		Session: 1,
		Hypotheses: []Hypothesis{
			{Text: "a", Final: true},
			{Text: "x", Final: false},
			{Text: "b", Final: true},
		},
	})
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}

	if got := m.Transcript(); got != "ab" {
		t.Errorf("Expected 'ab', got '%s'", got)
	}
}

func TestMachine_ErrorEvent(t *testing.T) {
	rec := &fakeRecognizer{}
	var listened *RecognitionError
	m := NewMachine(rec).OnError(func(err *RecognitionError) { listened = err })

	m.Start(context.Background(), persona.ViMale)
	rec.lastSink().Results(Hypothesis{Text: "kept", Final: true})

	err := m.Handle(ErrorEvent{Session: 1, Code: "network"})

	var recErr *RecognitionError
	if !errors.As(err, &recErr) || recErr.Code != "network" {
		t.Fatalf("Expected RecognitionError with code network, got %v", err)
	}
	if listened == nil || listened.Code != "network" {
		t.Errorf("Expected OnError listener to receive the error, got %v", listened)
	}
	if m.State() != Idle {
		t.Errorf("Expected Idle after error, got %s", m.State())
	}
	if rec.sessions[0].stopCount() != 1 {
		t.Errorf("Expected session stopped on error, got %d stops", rec.sessions[0].stopCount())
	}
	if m.Transcript() != "kept" {
		t.Errorf("Expected transcript to survive an error, got '%s'", m.Transcript())
	}
}

func TestMachine_EndEvent(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)
	m.Start(context.Background(), persona.ViMale)

	rec.lastSink().End()

	if m.State() != Idle {
		t.Errorf("Expected Idle after end, got %s", m.State())
	}
}

func TestMachine_StaleEventsDropped(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)

	m.Start(context.Background(), persona.ViMale)
	old := rec.lastSink()
	m.Stop()

	m.Start(context.Background(), persona.ViMale)

	old.Results(Hypothesis{Text: "late", Final: true})
	old.Error("aborted")
	old.End()

	if m.State() != Listening {
		t.Errorf("Expected stale events to leave the new session Listening, got %s", m.State())
	}
	if m.Transcript() != "" {
		t.Errorf("Expected stale results dropped, got '%s'", m.Transcript())
	}

	rec.lastSink().Results(Hypothesis{Text: "fresh", Final: true})
	if m.Transcript() != "fresh" {
		t.Errorf("Expected 'fresh', got '%s'", m.Transcript())
	}
}

func TestMachine_EventsWhileIdleDropped(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)
	m.Start(context.Background(), persona.ViMale)
	sink := rec.lastSink()
	m.Stop()

	sink.Results(Hypothesis{Text: "after stop", Final: true})

	if m.Transcript() != "" {
		t.Errorf("Expected no transcript after stop, got '%s'", m.Transcript())
	}
}

func TestMachine_LanguageFixedAtStart(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)
	selector := persona.NewSelector()

	m.Start(context.Background(), selector.Current())
	selector.Select(persona.EnFemale)

	if m.Language() != "vi-VN" {
		t.Errorf("Expected live session to keep vi-VN, got %s", m.Language())
	}

	m.Stop()
	m.Start(context.Background(), selector.Current())
	if rec.languages[1] != "en-US" {
		t.Errorf("Expected next session in en-US, got %s", rec.languages[1])
	}
}

func TestMachine_Write(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)

	if err := m.Write([]byte{1, 2}); err != nil {
		t.Errorf("Write() while idle failed: %v", err)
	}

	m.Start(context.Background(), persona.ViMale)
	m.Write([]byte{3, 4})

	if len(rec.sessions[0].written) != 1 {
		t.Errorf("Expected one audio chunk forwarded, got %d", len(rec.sessions[0].written))
	}
}

func TestMachine_ClearTranscript(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)
	m.Start(context.Background(), persona.ViMale)
	rec.lastSink().Results(Hypothesis{Text: "xin chào", Final: true})
	m.Stop()

	if m.Transcript() != "xin chào" {
		t.Fatalf("Expected transcript to survive stop, got '%s'", m.Transcript())
	}

	m.ClearTranscript()
	if m.Transcript() != "" {
		t.Errorf("Expected empty transcript, got '%s'", m.Transcript())
	}
}

func TestMachine_ConcurrentEvents(t *testing.T) {
	rec := &fakeRecognizer{}
	m := NewMachine(rec)
	m.Start(context.Background(), persona.EnMale)
	sink := rec.lastSink()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Results(Hypothesis{Text: "x", Final: true})
		}()
	}
	wg.Wait()

	if len(m.Transcript()) != 50 {
		t.Errorf("Expected 50 segments, got %d", len(m.Transcript()))
	}
}

func TestTranscript(t *testing.T) {
	var tr Transcript
	tr.Append("a ")
	tr.Append("b")

	if tr.String() != "a b" || tr.Len() != 2 {
		t.Errorf("Unexpected transcript %q (%d)", tr.String(), tr.Len())
	}

	tr.Clear()
	if tr.String() != "" || tr.Len() != 0 {
		t.Error("Expected empty transcript after Clear")
	}
}
