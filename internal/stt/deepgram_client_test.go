package stt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"

	"github.com/lexiqai/readaloud/internal/capture"
	"github.com/lexiqai/readaloud/internal/config"
	"github.com/lexiqai/readaloud/internal/persona"
	"github.com/lexiqai/readaloud/internal/resilience"
)

type fakeStream struct {
	connectOK bool
	written   [][]byte
	finished  int
}

func (s *fakeStream) Connect() bool { return s.connectOK }

func (s *fakeStream) Write(p []byte) (int, error) {
	s.written = append(s.written, p)
	return len(p), nil
}

func (s *fakeStream) Finish() { s.finished++ }

type fakeFactory struct {
	stream    *fakeStream
	err       error
	languages []string
	callback  msginterfaces.LiveMessageCallback
}

func (f *fakeFactory) open(ctx context.Context, language string, callback msginterfaces.LiveMessageCallback) (stream, error) {
	f.languages = append(f.languages, language)
	f.callback = callback
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

func testConfig() *config.Config {
	return &config.Config{
		DeepgramAPIKey:             "test",
		DeepgramModel:              "nova-2",
		DictationSampleRate:        16000,
		CircuitBreakerMaxFailures:  2,
		CircuitBreakerResetTimeout: 30,
	}
}

func message(t *testing.T, raw string) *msginterfaces.MessageResponse {
	t.Helper()
	var msg msginterfaces.MessageResponse
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Failed to build message: %v", err)
	}
	return &msg
}

func TestDeepgramRecognizer_DrivesMachine(t *testing.T) {
	factory := &fakeFactory{stream: &fakeStream{connectOK: true}}
	recognizer := newDeepgramRecognizer(testConfig(), factory.open)
	machine := capture.NewMachine(recognizer)

	if err := machine.Start(context.Background(), persona.EnFemale); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if factory.languages[0] != "en-US" {
		t.Errorf("Expected en-US, got %s", factory.languages[0])
	}

	cb := factory.callback
	cb.Message(message(t, `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
	cb.Message(message(t, `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"wor"}]}}`))
	cb.Message(message(t, `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"world"}]}}`))
	cb.Message(message(t, `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":""}]}}`))

	if got := machine.Transcript(); got != "hello world " {
		t.Errorf("Expected 'hello world ', got %q", got)
	}

	if err := machine.Write([]byte{0, 1}); err != nil {
		t.Errorf("Write() failed: %v", err)
	}
	if len(factory.stream.written) != 1 {
		t.Errorf("Expected audio forwarded to stream, got %d chunks", len(factory.stream.written))
	}

	machine.Stop()
	if factory.stream.finished != 1 {
		t.Errorf("Expected stream finished once, got %d", factory.stream.finished)
	}
}

func TestDeepgramRecognizer_ErrorStopsSession(t *testing.T) {
	factory := &fakeFactory{stream: &fakeStream{connectOK: true}}
	machine := capture.NewMachine(newDeepgramRecognizer(testConfig(), factory.open))

	var got *capture.RecognitionError
	machine.OnError(func(err *capture.RecognitionError) { got = err })
	machine.Start(context.Background(), persona.ViMale)

	factory.callback.Error(&msginterfaces.ErrorResponse{ErrCode: "INVALID_AUTH"})
	factory.callback.Close(&msginterfaces.CloseResponse{})

	if machine.State() != capture.Idle {
		t.Errorf("Expected Idle after engine error, got %s", machine.State())
	}
	if got == nil || got.Code != CodeEngine {
		t.Errorf("Expected engine error, got %v", got)
	}
	if factory.stream.finished != 1 {
		t.Errorf("Expected stream finished, got %d", factory.stream.finished)
	}
}

func TestDeepgramRecognizer_ErrorWithoutCodeIsNetwork(t *testing.T) {
	factory := &fakeFactory{stream: &fakeStream{connectOK: true}}
	machine := capture.NewMachine(newDeepgramRecognizer(testConfig(), factory.open))

	var got *capture.RecognitionError
	machine.OnError(func(err *capture.RecognitionError) { got = err })
	machine.Start(context.Background(), persona.EnMale)

	factory.callback.Error(nil)

	if got == nil || got.Code != CodeNetwork {
		t.Errorf("Expected network error, got %v", got)
	}
}

func TestDeepgramRecognizer_CloseEndsSession(t *testing.T) {
	factory := &fakeFactory{stream: &fakeStream{connectOK: true}}
	machine := capture.NewMachine(newDeepgramRecognizer(testConfig(), factory.open))
	machine.Start(context.Background(), persona.ViMale)

	factory.callback.Close(&msginterfaces.CloseResponse{})

	if machine.State() != capture.Idle {
		t.Errorf("Expected Idle after close, got %s", machine.State())
	}
}

func TestDeepgramRecognizer_ConnectFailure(t *testing.T) {
	factory := &fakeFactory{stream: &fakeStream{connectOK: false}}
	recognizer := newDeepgramRecognizer(testConfig(), factory.open)
	machine := capture.NewMachine(recognizer)

	for i := 0; i < 2; i++ {
		err := machine.Start(context.Background(), persona.ViMale)
		if !errors.Is(err, errConnectFailed) {
			t.Errorf("Expected errConnectFailed, got %v", err)
		}
		if machine.State() != capture.Idle {
			t.Errorf("Expected Idle, got %s", machine.State())
		}
	}

	if stats := recognizer.BreakerStats(); stats.State != resilience.StateOpen.String() || stats.Failures == 0 {
		t.Errorf("Expected breaker open after repeated failures, got %+v", stats)
	}

	err := machine.Start(context.Background(), persona.ViMale)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if len(factory.languages) != 2 {
		t.Errorf("Expected no dial while open, got %d dials", len(factory.languages))
	}
}

func TestDeepgramRecognizer_FactoryError(t *testing.T) {
	factory := &fakeFactory{err: errors.New("bad options")}
	machine := capture.NewMachine(newDeepgramRecognizer(testConfig(), factory.open))

	if err := machine.Start(context.Background(), persona.ViMale); err == nil {
		t.Error("Expected error when the client cannot be created")
	}
}

func TestDeepgramSession_WriteAfterStop(t *testing.T) {
	s := &fakeStream{connectOK: true}
	session := &deepgramSession{stream: s}

	session.Stop()
	session.Stop()
	if err := session.Write([]byte{1}); err != nil {
		t.Errorf("Write() after stop failed: %v", err)
	}

	if s.finished != 1 || len(s.written) != 0 {
		t.Errorf("Expected one finish and no writes, got %d/%d", s.finished, len(s.written))
	}
}
