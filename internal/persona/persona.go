package persona

import (
	"fmt"
	"strings"
	"sync"
)

// Persona is a combination of spoken language and voice gender
type Persona string

const (
	ViMale   Persona = "vi_male"
	ViFemale Persona = "vi_female"
	EnMale   Persona = "en_male"
	EnFemale Persona = "en_female"
)

// Default is the persona selected before the user picks one
const Default = ViMale

// Language codes understood by the relay and the translation client
const (
	LangVietnamese = "vi"
	LangEnglish    = "en"
)

// voiceFragments maps each persona to the substring matched against device voice names
var voiceFragments = map[Persona]string{
	ViMale:   "NamMinh",
	ViFemale: "HoaiMy",
	EnMale:   "Eric",
	EnFemale: "Jenny",
}

// All returns every persona in display order
func All() []Persona {
	return []Persona{ViMale, ViFemale, EnMale, EnFemale}
}

// Parse converts a persona key such as "en_female" into a Persona
func Parse(s string) (Persona, error) {
	p := Persona(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := voiceFragments[p]; !ok {
		return "", fmt.Errorf("unknown persona %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the known personas
func (p Persona) Valid() bool {
	_, ok := voiceFragments[p]
	return ok
}

// VoiceFragment returns the lookup key matched case-insensitively against voice names
func (p Persona) VoiceFragment() string {
	return voiceFragments[p]
}

// Language returns the short language code ("vi" or "en")
func (p Persona) Language() string {
	if strings.HasPrefix(string(p), LangEnglish) {
		return LangEnglish
	}
	return LangVietnamese
}

// RecognitionLanguage returns the BCP-47 tag used for speech recognition sessions
func (p Persona) RecognitionLanguage() string {
	if p.Language() == LangEnglish {
		return "en-US"
	}
	return "vi-VN"
}

// Female reports whether the persona uses a female voice
func (p Persona) Female() bool {
	return strings.HasSuffix(string(p), "_female")
}

func (p Persona) String() string {
	return string(p)
}

// DefaultFor returns the female persona for a language code, used after translation
func DefaultFor(lang string) (Persona, error) {
	switch lang {
	case LangVietnamese:
		return ViFemale, nil
	case LangEnglish:
		return EnFemale, nil
	default:
		return "", fmt.Errorf("unsupported language %q", lang)
	}
}

// Selector holds the currently selected persona. Exactly one persona is
// selected at any time.
type Selector struct {
	mu      sync.RWMutex
	current Persona
}

// NewSelector creates a selector holding the default persona
func NewSelector() *Selector {
	return &Selector{current: Default}
}

// Current returns the selected persona
func (s *Selector) Current() Persona {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Select replaces the selected persona; unknown personas are rejected and
// leave the selection unchanged
func (s *Selector) Select(p Persona) error {
	if !p.Valid() {
		return fmt.Errorf("unknown persona %q", p)
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	return nil
}
