package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/readaloud/internal/capture"
	"github.com/lexiqai/readaloud/internal/config"
	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/resilience"
)

var errConnectFailed = errors.New("failed to connect to Deepgram")

// messageCallbackHandler forwards Deepgram callbacks of one session to the
// capture machine. Methods it does not override fall back to the SDK default.
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	sink   capture.Sink
	logger zerolog.Logger

	once sync.Once
}

// Message maps a transcription result to a hypothesis
func (m *messageCallbackHandler) Message(msg *msginterfaces.MessageResponse) error {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return nil
	}

	text := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript)
	if text == "" {
		return nil
	}

	if msg.IsFinal {
		// Deepgram segments carry no trailing separator.
		text += " "
	}
	m.sink.Results(capture.Hypothesis{Text: text, Final: msg.IsFinal})
	return nil
}

// Error ends the session. Errors Deepgram reports with a code of its own
// are engine errors; anything else is treated as a transport failure.
func (m *messageCallbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	code := CodeNetwork
	event := m.logger.Warn()
	if errorResponse != nil && errorResponse.ErrCode != "" {
		code = CodeEngine
		event = event.Str("deepgram_code", errorResponse.ErrCode)
	}
	event.Str("code", code).Msg("Deepgram error")
	m.once.Do(func() { m.sink.Error(code) })
	return nil
}

// Close reports that Deepgram closed the stream
func (m *messageCallbackHandler) Close(*msginterfaces.CloseResponse) error {
	m.once.Do(m.sink.End)
	return nil
}

// DeepgramRecognizer implements capture.Recognizer using Deepgram's
// streaming API. Each Open creates a new websocket stream.
type DeepgramRecognizer struct {
	open           streamFactory
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// NewDeepgramRecognizer creates a recognizer for linear16 mono audio at the
// configured sample rate
func NewDeepgramRecognizer(cfg *config.Config) *DeepgramRecognizer {
	open := func(ctx context.Context, language string, callback msginterfaces.LiveMessageCallback) (stream, error) {
		tOptions := &interfaces.LiveTranscriptionOptions{
			Model:          cfg.DeepgramModel,
			Language:       language,
			Punctuate:      true,
			InterimResults: true,
			Encoding:       "linear16",
			Channels:       1,
			SampleRate:     cfg.DictationSampleRate,
		}
		return listenClient.NewWSUsingCallback(ctx, cfg.DeepgramAPIKey, nil, tOptions, callback)
	}
	return newDeepgramRecognizer(cfg, open)
}

func newDeepgramRecognizer(cfg *config.Config, open streamFactory) *DeepgramRecognizer {
	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	).Observe(func(name string, state resilience.CircuitState, failed bool) {
		observability.UpdateCircuitBreakerState(name, int(state))
		if failed {
			observability.IncrementCircuitBreakerFailures(name)
		}
	})

	return &DeepgramRecognizer{
		open:           open,
		circuitBreaker: circuitBreaker,
		logger:         observability.Component("deepgram"),
	}
}

// Open starts a Deepgram stream in language. The returned session must be
// stopped by the caller.
func (d *DeepgramRecognizer) Open(ctx context.Context, language string, sink capture.Sink) (capture.RecognitionSession, error) {
	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		sink:                   sink,
		logger:                 d.logger,
	}

	var s stream
	err := d.circuitBreaker.Call(ctx, func() error {
		var err error
		s, err = d.open(ctx, language, callback)
		if err != nil {
			return fmt.Errorf("failed to create Deepgram client: %w", err)
		}
		if !s.Connect() {
			return errConnectFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logger.Info().Str("language", language).Msg("Deepgram streaming session started")
	return &deepgramSession{stream: s, logger: d.logger}, nil
}

// BreakerStats reports the circuit breaker guarding Deepgram connections
func (d *DeepgramRecognizer) BreakerStats() observability.BreakerStatus {
	state, requests, failures, rate := d.circuitBreaker.GetStats()
	return observability.BreakerStatus{State: state.String(), Requests: requests, Failures: failures, FailureRate: rate}
}

type deepgramSession struct {
	stream stream
	logger zerolog.Logger

	mu      sync.Mutex
	stopped bool
}

// Write sends an audio chunk to Deepgram
func (s *deepgramSession) Write(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	if _, err := s.stream.Write(audio); err != nil {
		return fmt.Errorf("failed to send audio to Deepgram: %w", err)
	}
	return nil
}

// Stop finishes the stream. Later calls do nothing.
func (s *deepgramSession) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.stream.Finish()
	s.logger.Info().Msg("Deepgram streaming session stopped")
	return nil
}
