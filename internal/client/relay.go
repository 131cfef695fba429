package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lexiqai/readaloud/internal/tts"
)

// ErrRelayFailed is returned when the relay answers without a file
var ErrRelayFailed = errors.New("relay failed to create audio file")

type ttsRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type ttsResponse struct {
	Success bool   `json:"success"`
	File    string `json:"file"`
	Error   string `json:"error"`
}

// Relay talks to a running relay server
type Relay struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewRelay creates a client for the relay at baseURL
func NewRelay(baseURL string) (*Relay, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid relay URL %q", baseURL)
	}
	return &Relay{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Truncate cuts text to the provider limit, counting runes
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= tts.MaxTextLength {
		return text
	}
	return string(runes[:tts.MaxTextLength])
}

// Download asks the relay to synthesize text and copies the audio to w.
// Text longer than the provider limit is truncated.
func (c *Relay) Download(ctx context.Context, text, lang string, w io.Writer) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, errors.New("text is empty")
	}

	fileURL, err := c.synthesize(ctx, Truncate(text), lang)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("audio download returned status %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to write audio: %w", err)
	}
	return n, nil
}

func (c *Relay) synthesize(ctx context.Context, text, lang string) (string, error) {
	body, err := json.Marshal(ttsRequest{Text: text, Lang: lang})
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: "/api/tts"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach relay: %w", err)
	}
	defer resp.Body.Close()

	var out ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: unreadable response (status %d)", ErrRelayFailed, resp.StatusCode)
	}
	if !out.Success || out.File == "" {
		return "", fmt.Errorf("%w: %s", ErrRelayFailed, out.Error)
	}

	// Direct mode answers with an absolute provider URL.
	ref, err := url.Parse(out.File)
	if err != nil {
		return "", fmt.Errorf("%w: invalid file URL %q", ErrRelayFailed, out.File)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}
