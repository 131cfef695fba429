package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/persona"
)

// ErrEmptyInput is returned when there is nothing to speak
var ErrEmptyInput = errors.New("text to speak is empty")

// VoiceNotFoundError reports that no installed voice matches a persona.
// It is a warning: the text is still spoken with the default voice.
type VoiceNotFoundError struct {
	Persona  persona.Persona
	Fragment string
}

func (e *VoiceNotFoundError) Error() string {
	return fmt.Sprintf("voice %q not found on this device", e.Fragment)
}

// Voice is one entry of the platform voice catalog
type Voice struct {
	Name     string
	Language string
}

// Utterance is a request to speak Text. A nil Voice means the platform
// default voice.
type Utterance struct {
	Text  string
	Voice *Voice
}

// VoiceCatalogProvider lists the voices installed on the platform. The list
// may change over time.
type VoiceCatalogProvider interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// Speaker plays utterances. Speak enqueues and returns without waiting for
// playback.
type Speaker interface {
	Speak(u Utterance) error
}

// Result of a SynthesizeAndPlay call
type Result struct {
	Voice         *Voice
	VoiceNotFound bool
	Warning       *VoiceNotFoundError
}

// Controller speaks text with the voice of the selected persona
type Controller struct {
	catalog VoiceCatalogProvider
	speaker Speaker
	logger  zerolog.Logger
}

// NewController creates a speech output controller
func NewController(catalog VoiceCatalogProvider, speaker Speaker) *Controller {
	return &Controller{
		catalog: catalog,
		speaker: speaker,
		logger:  observability.Component("voice"),
	}
}

// SynthesizeAndPlay enqueues text for playback with the persona's voice.
// The catalog is read on every call so newly installed voices are picked up.
func (c *Controller) SynthesizeAndPlay(ctx context.Context, text string, p persona.Persona) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	voices, err := c.catalog.Voices(ctx)
	if err != nil {
		// An unreadable catalog is treated like an empty one.
		c.logger.Warn().Err(err).Msg("Failed to read voice catalog")
		voices = nil
	}

	result := &Result{}
	if v, ok := Match(voices, p); ok {
		result.Voice = &v
	} else {
		result.VoiceNotFound = true
		result.Warning = &VoiceNotFoundError{Persona: p, Fragment: p.VoiceFragment()}
		c.logger.Warn().
			Str("persona", p.String()).
			Str("fragment", p.VoiceFragment()).
			Msg("Voice not found, using default voice")
	}

	if err := c.speaker.Speak(Utterance{Text: text, Voice: result.Voice}); err != nil {
		return result, fmt.Errorf("speak: %w", err)
	}

	return result, nil
}

// Match returns the first voice whose name contains the persona's voice
// fragment, ignoring case
func Match(voices []Voice, p persona.Persona) (Voice, bool) {
	fragment := strings.ToLower(p.VoiceFragment())
	if fragment == "" {
		return Voice{}, false
	}
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), fragment) {
			return v, true
		}
	}
	return Voice{}, false
}
