package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lexiqai/readaloud/internal/config"
	"github.com/lexiqai/readaloud/internal/observability"
	"github.com/lexiqai/readaloud/internal/resilience"
)

const (
	speedNormal = "1"
	speedSlow   = "0.24"
)

// GoogleClient implements Provider using the Google Translate TTS endpoint
type GoogleClient struct {
	host           string
	timeout        time.Duration
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
}

// NewGoogleClient creates a new Google Translate TTS client
func NewGoogleClient(cfg *config.Config) *GoogleClient {
	circuitBreaker := resilience.NewCircuitBreaker(
		"tts_provider",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	).Observe(func(name string, state resilience.CircuitState, failed bool) {
		observability.UpdateCircuitBreakerState(name, int(state))
		if failed {
			observability.IncrementCircuitBreakerFailures(name)
		}
	})

	return &GoogleClient{
		host:           strings.TrimRight(cfg.TTSHost, "/"),
		timeout:        time.Duration(cfg.TTSTimeout) * time.Second,
		httpClient:     &http.Client{},
		circuitBreaker: circuitBreaker,
	}
}

// AudioURL builds the provider URL for text spoken in lang. No network call is made.
func (c *GoogleClient) AudioURL(text, lang string, opts Options) (string, error) {
	if text == "" || lang == "" {
		return "", ErrEmptyText
	}

	length := utf8.RuneCountInString(text)
	if length > MaxTextLength {
		return "", fmt.Errorf("%w: %d > %d characters", ErrTextTooLong, length, MaxTextLength)
	}

	speed := speedNormal
	if opts.Slow {
		speed = speedSlow
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", lang)
	q.Set("total", "1")
	q.Set("idx", "0")
	q.Set("textlen", strconv.Itoa(length))
	q.Set("client", "tw-ob")
	q.Set("prev", "input")
	q.Set("ttsspeed", speed)

	return c.host + "/translate_tts?" + q.Encode(), nil
}

// FetchAudio downloads the audio bytes at audioURL
func (c *GoogleClient) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	var audio []byte

	err := c.circuitBreaker.Call(ctx, func() error {
		reqCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, audioURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to make request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %d", ErrProviderStatus, resp.StatusCode)
		}

		audio, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read audio response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return audio, nil
}

// Ping checks that the provider host answers HTTP requests
func (c *GoogleClient) Ping(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.host, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return false, fmt.Errorf("tts provider host returned status %d", resp.StatusCode)
	}
	return true, nil
}

// BreakerStats reports the circuit breaker guarding audio fetches
func (c *GoogleClient) BreakerStats() observability.BreakerStatus {
	state, requests, failures, rate := c.circuitBreaker.GetStats()
	return observability.BreakerStatus{State: state.String(), Requests: requests, Failures: failures, FailureRate: rate}
}
