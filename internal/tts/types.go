package tts

import (
	"context"
	"errors"
)

// MaxTextLength is the longest text, in characters, the provider accepts in one request
const MaxTextLength = 200

var (
	// ErrEmptyText is returned when text or language is missing
	ErrEmptyText = errors.New("text and language are required")

	// ErrTextTooLong is returned when text exceeds MaxTextLength characters
	ErrTextTooLong = errors.New("text exceeds provider length limit")

	// ErrProviderStatus is returned when the provider answers with a non-200 status
	ErrProviderStatus = errors.New("tts provider returned unexpected status")
)

// Options tunes a synthesis request
type Options struct {
	// Slow requests the provider's slow speaking rate
	Slow bool
}

// URLProvider generates a fetchable audio URL for text in a language
type URLProvider interface {
	AudioURL(text, lang string, opts Options) (string, error)
}

// AudioFetcher downloads the audio resource behind a provider URL
type AudioFetcher interface {
	FetchAudio(ctx context.Context, audioURL string) ([]byte, error)
}

// Provider is the full TTS provider client used by the relay
type Provider interface {
	URLProvider
	AudioFetcher
}
