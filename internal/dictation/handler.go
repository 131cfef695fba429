package dictation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/readaloud/internal/audio"
	"github.com/lexiqai/readaloud/internal/capture"
	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/persona"
)

const (
	writeTimeout    = 5 * time.Second
	maxMessageBytes = 1 << 20
)

// Client message types
const (
	TypeStart = "start"
	TypeStop  = "stop"
	TypeClear = "clear"
)

// Server message types
const (
	TypeState      = "state"
	TypeTranscript = "transcript"
	TypeSpeech     = "speech"
	TypeError      = "error"
)

// Error kinds sent to the client
const (
	ErrorCapabilityUnavailable = "capability_unavailable"
	ErrorRecognition           = "recognition"
	ErrorBadRequest            = "bad_request"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// CORS is open for the whole API
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ClientMessage is a JSON control frame sent by the client
type ClientMessage struct {
	Type    string `json:"type"`
	Persona string `json:"persona,omitempty"`
}

// StateMessage reports a capture state change
type StateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// TranscriptMessage carries the whole transcript buffer
type TranscriptMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SpeechMessage reports a voice activity edge
type SpeechMessage struct {
	Type     string `json:"type"`
	Speaking bool   `json:"speaking"`
}

// ErrorMessage reports a failure to the client
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handler serves the dictation websocket. Each connection owns its own
// capture machine and persona selection.
type Handler struct {
	recognizer capture.Recognizer
	vadConfig  *audio.VADConfig
	logger     zerolog.Logger
}

// NewHandler creates a dictation handler. A nil recognizer answers every
// start with capability_unavailable.
func NewHandler(recognizer capture.Recognizer, vadConfig *audio.VADConfig) *Handler {
	return &Handler{
		recognizer: recognizer,
		vadConfig:  vadConfig,
		logger:     observability.Component("dictation"),
	}
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade dictation connection")
		return
	}
	defer conn.Close()

	correlationID := observability.NewCorrelationID()
	s := &session{
		conn:     conn,
		selector: persona.NewSelector(),
		vad:      audio.NewVADDetector(h.vadConfig),
		logger:   observability.WithCorrelationID(correlationID).With().Str("component", "dictation").Logger(),
	}
	s.machine = capture.NewMachine(h.recognizer).
		OnState(func(state capture.State) {
			s.send(StateMessage{Type: TypeState, State: state.String()})
		}).
		OnTranscript(func(text string) {
			s.send(TranscriptMessage{Type: TypeTranscript, Text: text})
		}).
		OnError(func(err *capture.RecognitionError) {
			s.send(ErrorMessage{Type: TypeError, Error: ErrorRecognition, Code: err.Code})
		})
	defer s.machine.Stop()

	s.logger.Info().Msg("Dictation connection established")
	s.run(r.Context())
	s.logger.Info().Msg("Dictation connection closed")
}

type session struct {
	conn     *websocket.Conn
	machine  *capture.Machine
	selector *persona.Selector
	vad      *audio.VADDetector
	logger   zerolog.Logger

	writeMu sync.Mutex
}

func (s *session) run(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageBytes)
	// Server read timeouts do not apply to a dictation stream.
	s.conn.SetReadDeadline(time.Time{})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			s.handleControl(ctx, data)
		case websocket.BinaryMessage:
			s.handleAudio(data)
		}
	}
}

func (s *session) handleControl(ctx context.Context, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to parse dictation message")
		s.send(ErrorMessage{Type: TypeError, Error: ErrorBadRequest, Code: "invalid_json"})
		return
	}

	switch msg.Type {
	case TypeStart:
		if msg.Persona != "" {
			if err := s.selector.Select(persona.Persona(msg.Persona)); err != nil {
				s.send(ErrorMessage{Type: TypeError, Error: ErrorBadRequest, Code: "invalid_persona"})
				return
			}
		}
		err := s.machine.Start(ctx, s.selector.Current())
		switch {
		case errors.Is(err, capture.ErrCapabilityUnavailable):
			s.send(ErrorMessage{Type: TypeError, Error: ErrorCapabilityUnavailable})
		case err != nil:
			s.logger.Error().Err(err).Msg("Failed to start capture")
			s.send(ErrorMessage{Type: TypeError, Error: ErrorRecognition, Code: "start_failed"})
		}

	case TypeStop:
		s.machine.Stop()

	case TypeClear:
		s.machine.ClearTranscript()

	default:
		s.send(ErrorMessage{Type: TypeError, Error: ErrorBadRequest, Code: "unknown_type"})
	}
}

func (s *session) handleAudio(data []byte) {
	if s.machine.State() != capture.Listening {
		if s.vad.IsSpeaking() {
			s.send(SpeechMessage{Type: TypeSpeech, Speaking: false})
		}
		s.vad.Reset()
		return
	}

	observability.RecordDictationAudio(len(data))
	if err := s.machine.Write(data); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to forward audio")
	}

	for _, speaking := range s.vad.Feed(data) {
		s.send(SpeechMessage{Type: TypeSpeech, Speaking: speaking})
	}
}

// send writes a JSON frame. Listeners run on engine goroutines, so writes
// are serialized.
func (s *session) send(v any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(v); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write dictation message")
	}
}
