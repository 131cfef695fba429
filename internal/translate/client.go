package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/persona"
)

// DefaultEndpoint is the public Google Translate endpoint used by the gtx client
const DefaultEndpoint = "https://translate.googleapis.com/translate_a/single"

var (
	// ErrEmptyInput is returned when the trimmed text is empty
	ErrEmptyInput = errors.New("text to translate is empty")

	// ErrUnsupportedLanguage is returned for targets other than vi and en
	ErrUnsupportedLanguage = errors.New("unsupported target language")

	// ErrTranslationFailed is returned for non-2xx answers and malformed responses
	ErrTranslationFailed = errors.New("translation failed")
)

// Result is a successful translation
type Result struct {
	Text string

	// SuggestedPersona is the female persona of the target language. Callers
	// may switch to it so the translated text is read in the right language.
	SuggestedPersona persona.Persona
}

// Client calls the translation endpoint. Requests are never retried.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a translation client for endpoint (DefaultEndpoint if empty)
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SourceFor returns the source language implied by a target: the other one
func SourceFor(target string) string {
	if target == persona.LangVietnamese {
		return persona.LangEnglish
	}
	return persona.LangVietnamese
}

// Translate translates text into target ("vi" or "en")
func (c *Client) Translate(ctx context.Context, text, target string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	suggested, err := persona.DefaultFor(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, target)
	}

	translated, err := c.fetch(ctx, trimmed, SourceFor(target), target)
	observability.RecordTranslation(err == nil)
	if err != nil {
		return nil, err
	}

	return &Result{Text: translated, SuggestedPersona: suggested}, nil
}

func (c *Client) fetch(ctx context.Context, text, source, target string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslationFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: endpoint returned status %d", ErrTranslationFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranslationFailed, err)
	}

	return parseResponse(body)
}

// parseResponse extracts the first translated segment, data[0][0][0]
func parseResponse(body []byte) (string, error) {
	var data []json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil || len(data) == 0 {
		return "", fmt.Errorf("%w: malformed response", ErrTranslationFailed)
	}

	var segments []json.RawMessage
	if err := json.Unmarshal(data[0], &segments); err != nil || len(segments) == 0 {
		return "", fmt.Errorf("%w: malformed response", ErrTranslationFailed)
	}

	var segment []json.RawMessage
	if err := json.Unmarshal(segments[0], &segment); err != nil || len(segment) == 0 {
		return "", fmt.Errorf("%w: malformed response", ErrTranslationFailed)
	}

	var translated string
	if err := json.Unmarshal(segment[0], &translated); err != nil {
		return "", fmt.Errorf("%w: malformed response", ErrTranslationFailed)
	}

	return translated, nil
}
