// Package relay turns text into a downloadable speech file by proxying a TTS
// provider. In store mode the provider audio is downloaded and persisted; in
// direct mode the provider URL is handed back untouched.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexiqai/readaloud/internal/config"
	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/storage"
	"github.com/lexiqai/readaloud/internal/tts"
)

var (
	// ErrValidation is returned when text or lang is missing
	ErrValidation = errors.New("text and lang are required")

	// ErrSynthesisRelayFailed covers provider URL, fetch and store failures
	ErrSynthesisRelayFailed = errors.New("failed to create audio file")
)

// Job describes one relay request. It only lives for the duration of the request.
type Job struct {
	Text     string
	Lang     string
	FileName string // empty in direct mode
	File     string // servable path or provider URL
	Size     int
}

// Relay proxies text to a TTS provider
type Relay struct {
	provider tts.Provider
	store    storage.Store
	mode     string
	newName  func() string
}

// New creates a relay. store may be nil in direct mode.
func New(provider tts.Provider, store storage.Store, mode string) (*Relay, error) {
	if provider == nil {
		return nil, fmt.Errorf("relay requires a tts provider")
	}
	switch mode {
	case config.RelayModeStore:
		if store == nil {
			return nil, fmt.Errorf("relay mode %q requires an audio store", mode)
		}
	case config.RelayModeDirect:
	default:
		return nil, fmt.Errorf("unknown relay mode %q", mode)
	}

	return &Relay{
		provider: provider,
		store:    store,
		mode:     mode,
		newName:  storage.NewFileName,
	}, nil
}

// Mode returns the relay mode
func (r *Relay) Mode() string {
	return r.mode
}

// Synthesize validates the input, obtains the provider URL at normal speed
// and, in store mode, downloads and persists the audio. metrics may be nil.
func (r *Relay) Synthesize(ctx context.Context, text, lang string, metrics *observability.JobMetrics) (*Job, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(lang) == "" {
		return nil, ErrValidation
	}

	job := &Job{Text: text, Lang: lang}

	audioURL, err := r.provider.AudioURL(text, lang, tts.Options{Slow: false})
	if err != nil {
		return nil, fmt.Errorf("%w: audio url: %w", ErrSynthesisRelayFailed, err)
	}

	if r.mode == config.RelayModeDirect {
		job.File = audioURL
		return job, nil
	}

	metrics.RecordProviderStart()
	audio, err := r.provider.FetchAudio(ctx, audioURL)
	metrics.RecordProviderEnd(err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", ErrSynthesisRelayFailed, err)
	}

	job.FileName = r.newName()
	job.Size = len(audio)

	job.File, err = r.store.Save(ctx, job.FileName, audio)
	if err != nil {
		return nil, fmt.Errorf("%w: store: %w", ErrSynthesisRelayFailed, err)
	}

	return job, nil
}
