package relay

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lexiqai/readaloud/internal/observability"
)

// maxRequestBytes bounds the JSON body read by the TTS handler
const maxRequestBytes = 64 << 10

// TTSRequest is the body of POST /api/tts
type TTSRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// TTSResponse is the success body of POST /api/tts
type TTSResponse struct {
	Success bool   `json:"success"`
	File    string `json:"file"`
}

// ErrorResponse is the body of every relay error answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleTTS serves POST /api/tts
func HandleTTS(relay *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := observability.FromRequest(r)

		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method Not Allowed"})
			return
		}

		metrics := observability.NewJobMetrics(relay.Mode())

		var req TTSRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			logger.Debug().Err(err).Msg("Invalid TTS request body")
			metrics.RecordDone(observability.StatusBadRequest)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrValidation.Error()})
			return
		}

		job, err := relay.Synthesize(r.Context(), req.Text, req.Lang, metrics)
		switch {
		case errors.Is(err, ErrValidation):
			metrics.RecordDone(observability.StatusBadRequest)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrValidation.Error()})
			return

		case err != nil:
			logger.Error().
				Err(err).
				Str("lang", req.Lang).
				Int("text_len", len(req.Text)).
				Msg("TTS relay failed")
			metrics.RecordDone(observability.StatusError)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: ErrSynthesisRelayFailed.Error()})
			return
		}

		if job.Size > 0 {
			metrics.RecordStored(job.Size)
		}
		metrics.RecordDone(observability.StatusOK)

		logger.Info().
			Str("lang", job.Lang).
			Str("file", job.File).
			Int("bytes", job.Size).
			Msg("TTS audio ready")

		writeJSON(w, http.StatusOK, TTSResponse{Success: true, File: job.File})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
